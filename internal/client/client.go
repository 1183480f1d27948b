// Package client talks to the query API.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/hamed0406/wanuptime/internal/domain"
)

// ErrNoContent is returned by Download when the window holds no records.
var ErrNoContent = errors.New("no records in the requested window")

type Client struct {
	Base string
	HTTP *http.Client
}

func New(base string) *Client {
	return &Client{
		Base: strings.TrimRight(base, "/"),
		HTTP: &http.Client{Timeout: 30 * time.Second},
	}
}

type Uptime struct {
	domain.AggregateResult
	NoData bool `json:"no_data"`
}

type Records struct {
	Start   time.Time            `json:"start"`
	End     time.Time            `json:"end"`
	Records []domain.ProbeRecord `json:"records"`
}

type Disruptions struct {
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	Disruptions []domain.Disruption `json:"disruptions"`
}

func (c *Client) Uptime(ctx context.Context, q url.Values) (Uptime, error) {
	var out Uptime
	q = clone(q)
	q.Set("format", "json")
	err := c.getJSON(ctx, "/api/uptime", q, &out)
	return out, err
}

func (c *Client) Records(ctx context.Context, q url.Values) (Records, error) {
	var out Records
	err := c.getJSON(ctx, "/api/records", q, &out)
	return out, err
}

func (c *Client) Disruptions(ctx context.Context, q url.Values) (Disruptions, error) {
	var out Disruptions
	err := c.getJSON(ctx, "/api/disruptions", q, &out)
	return out, err
}

// Download copies the uptime export in q's format to w.
func (c *Client) Download(ctx context.Context, q url.Values, w io.Writer) error {
	resp, err := c.get(ctx, "/api/uptime", q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		return ErrNoContent
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	resp, err := c.get(ctx, path, q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	u := c.Base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
		if body.Error == "" {
			body.Error = resp.Status
		}
		return nil, &APIError{Status: resp.StatusCode, Message: body.Error}
	}
	return resp, nil
}

type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func clone(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}
