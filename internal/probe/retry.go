package probe

import (
	"context"
	"time"

	"github.com/hamed0406/wanuptime/internal/domain"
)

// RetryProber repeats a failed probe up to Attempts times. All attempts and
// the backoff between them share one timeout, so a retried probe still fits
// in the loop period. The record keeps the first issue time.
type RetryProber struct {
	Inner    Prober
	Attempts int
	Backoff  time.Duration
}

func (r *RetryProber) Probe(ctx context.Context, at time.Time, timeout time.Duration) domain.ProbeRecord {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	deadline := time.Now().Add(timeout)

	var last domain.ProbeRecord
	for i := 0; i < attempts; i++ {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		last = r.Inner.Probe(ctx, at, remaining)
		if last.Success {
			return last
		}
		if i == attempts-1 || r.Backoff <= 0 {
			continue
		}
		t := time.NewTimer(r.Backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return last
		case <-t.C:
		}
	}
	if last.Timestamp.IsZero() {
		return domain.Down(at, domain.ReasonTimeout)
	}
	return last
}
