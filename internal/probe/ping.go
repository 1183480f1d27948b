package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/macrat/go-parallel-pinger"
	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/domain"
)

var ErrPingerUnavailable = errors.New("failed to start ICMP pinger")

// PingProber sends ICMP echo requests. It succeeds when at least one reply
// comes back, and reports the average round trip as latency.
type PingProber struct {
	host    string
	literal *net.IPAddr
	packets int
	v4, v6  *pinger.Pinger
	log     *zap.Logger
}

func NewPingProber(ctx context.Context, host string, opts Options) (*PingProber, error) {
	p := &PingProber{host: host, packets: opts.Packets, log: opts.Log}
	if p.packets <= 0 {
		p.packets = 1
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if ip := net.ParseIP(host); ip != nil {
		p.literal = &net.IPAddr{IP: ip}
	}

	v4 := pinger.NewIPv4()
	v6 := pinger.NewIPv6()
	if opts.Privileged != nil {
		v4.SetPrivileged(*opts.Privileged)
		v6.SetPrivileged(*opts.Privileged)
	}

	if err := v4.Start(ctx); err != nil {
		if opts.Privileged != nil {
			return nil, fmt.Errorf("%w: %v", ErrPingerUnavailable, err)
		}
		v4.SetPrivileged(!pinger.DEFAULT_PRIVILEGED)
		v6.SetPrivileged(!pinger.DEFAULT_PRIVILEGED)
		if err := v4.Start(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPingerUnavailable, err)
		}
	}
	p.v4 = v4

	if err := v6.Start(ctx); err != nil {
		if p.literal != nil && p.literal.IP.To4() == nil {
			return nil, fmt.Errorf("%w: ipv6: %v", ErrPingerUnavailable, err)
		}
		p.log.Warn("pinger_ipv6_unavailable", zap.Error(err))
	} else {
		p.v6 = v6
	}
	return p, nil
}

func (p *PingProber) Probe(ctx context.Context, at time.Time, timeout time.Duration) domain.ProbeRecord {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr, err := p.resolve(ctx)
	if err != nil {
		return failed(ctx, p.log, at, p.host, err)
	}

	pg := p.v4
	if addr.IP.To4() == nil {
		pg = p.v6
	}
	if pg == nil {
		return domain.Down(at, domain.ReasonUnreachable)
	}

	interval := timeout / time.Duration(p.packets+1)
	res, err := pg.Ping(ctx, addr, p.packets, interval)
	if err != nil {
		return failed(ctx, p.log, at, p.host, err)
	}
	switch {
	case res.Recv == 0 && res.Sent > 1:
		return domain.Down(at, domain.ReasonPacketLoss)
	case res.Recv == 0:
		return domain.Down(at, domain.ReasonTimeout)
	}
	return domain.Up(at, res.AvgRTT)
}

// resolve prefers an IPv4 address, falling back to IPv6 when a v6 pinger is
// running.
func (p *PingProber) resolve(ctx context.Context) (*net.IPAddr, error) {
	if p.literal != nil {
		return p.literal, nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, p.host)
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		if a.IP.To4() != nil {
			return &a, nil
		}
	}
	if p.v6 != nil && len(addrs) > 0 {
		return &addrs[0], nil
	}
	return nil, &net.DNSError{Err: "no usable address", Name: p.host, IsNotFound: true}
}
