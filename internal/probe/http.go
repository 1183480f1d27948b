package probe

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/domain"
)

// HTTPProber issues a GET and treats any 2xx or 3xx status as success.
type HTTPProber struct {
	URL    string
	Client *http.Client
	log    *zap.Logger
}

func NewHTTPProber(target string, log *zap.Logger) *HTTPProber {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPProber{
		URL: target,
		Client: &http.Client{
			// 3xx counts as success, so redirects are not followed.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		log: log,
	}
}

func (h *HTTPProber) Probe(ctx context.Context, at time.Time, timeout time.Duration) domain.ProbeRecord {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return domain.Down(at, domain.ReasonError)
	}

	start := time.Now()
	resp, err := h.Client.Do(req)
	latency := time.Since(start)
	if err != nil {
		host := ""
		if u, perr := url.Parse(h.URL); perr == nil {
			host = u.Hostname()
		}
		return failed(ctx, h.log, at, host, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		h.log.Debug("probe_http_status", zap.String("url", h.URL), zap.Int("status", resp.StatusCode))
		return domain.Down(at, domain.ReasonHTTPStatus)
	}
	return domain.Up(at, latency)
}
