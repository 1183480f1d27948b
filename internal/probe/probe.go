// Package probe performs single reachability checks against one target.
//
// A Prober never returns an error for a network failure: an unreachable
// target is an observation and comes back as a failed record. Only a target
// that cannot be probed at all is rejected, and that happens once in New.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/domain"
)

var (
	ErrEmptyTarget   = errors.New("target is empty")
	ErrBadTarget     = errors.New("target cannot be parsed")
	ErrUnknownScheme = errors.New("target scheme is not supported")
)

// Prober checks its target once. at is the instant the probe is issued and
// becomes the record timestamp.
type Prober interface {
	Probe(ctx context.Context, at time.Time, timeout time.Duration) domain.ProbeRecord
}

type Options struct {
	// Packets is the number of ICMP echoes per probe. Defaults to 1.
	Packets int
	// Privileged forces the ICMP socket mode. nil keeps the library default.
	Privileged *bool
	// Attempts and Backoff wrap the prober in a RetryProber when Attempts > 1.
	Attempts int
	Backoff  time.Duration

	Log *zap.Logger
}

// New builds the prober for target. Accepted forms:
//
//	8.8.8.8, example.com, ping://example.com   ICMP echo
//	tcp://example.com:443                      TCP connect
//	http://..., https://...                    HTTP GET
//
// ICMP probers stay usable until ctx is cancelled.
func New(ctx context.Context, target string, opts Options) (Prober, error) {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, ErrEmptyTarget
	}

	var (
		p   Prober
		err error
	)
	if !strings.Contains(target, "://") {
		p, err = NewPingProber(ctx, target, opts)
	} else {
		u, perr := url.Parse(target)
		if perr != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadTarget, perr)
		}
		switch strings.ToLower(u.Scheme) {
		case "ping", "icmp":
			if u.Hostname() == "" {
				return nil, fmt.Errorf("%w: missing host in %q", ErrBadTarget, target)
			}
			p, err = NewPingProber(ctx, u.Hostname(), opts)
		case "tcp":
			if u.Hostname() == "" || u.Port() == "" {
				return nil, fmt.Errorf("%w: tcp target needs host:port, got %q", ErrBadTarget, target)
			}
			p = NewTCPProber(u.Host, opts.Log)
		case "http", "https":
			if u.Hostname() == "" {
				return nil, fmt.Errorf("%w: missing host in %q", ErrBadTarget, target)
			}
			p = NewHTTPProber(u.String(), opts.Log)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, u.Scheme)
		}
	}
	if err != nil {
		return nil, err
	}

	if opts.Attempts > 1 {
		p = &RetryProber{Inner: p, Attempts: opts.Attempts, Backoff: opts.Backoff}
	}
	return p, nil
}

// Reason maps a probe error to a failure reason code.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.ReasonDNS
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ReasonTimeout
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return domain.ReasonRefused
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.EHOSTDOWN), errors.Is(err, syscall.ENETDOWN):
		return domain.ReasonUnreachable
	}
	return domain.ReasonError
}

// failed builds the record for err and logs the DNS class when resolution
// was the problem.
func failed(ctx context.Context, log *zap.Logger, at time.Time, host string, err error) domain.ProbeRecord {
	reason := Reason(err)
	if reason == domain.ReasonDNS && log.Core().Enabled(zap.DebugLevel) {
		st := CheckDNS(ctx, host)
		log.Debug("probe_dns_failure",
			zap.String("host", host),
			zap.String("class", st.Class),
			zap.String("resolver_error", st.ResolverError))
	}
	return domain.Down(at, reason)
}
