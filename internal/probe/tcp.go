package probe

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/domain"
)

// TCPProber succeeds when a TCP handshake with addr completes.
type TCPProber struct {
	addr   string
	dialer net.Dialer
	log    *zap.Logger
}

func NewTCPProber(addr string, log *zap.Logger) *TCPProber {
	if log == nil {
		log = zap.NewNop()
	}
	return &TCPProber{addr: addr, log: log}
}

func (t *TCPProber) Probe(ctx context.Context, at time.Time, timeout time.Duration) domain.ProbeRecord {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := t.dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		host, _, _ := net.SplitHostPort(t.addr)
		return failed(ctx, t.log, at, host, err)
	}
	latency := time.Since(start)
	_ = conn.Close()
	return domain.Up(at, latency)
}
