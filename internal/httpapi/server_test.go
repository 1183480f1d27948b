package httpapi

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/domain"
	"github.com/hamed0406/wanuptime/internal/query"
	"github.com/hamed0406/wanuptime/internal/repo/memory"
)

// ---- test helpers ----

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sec(n int) time.Time { return t0.Add(time.Duration(n) * time.Second) }

type failingReader struct{}

func (failingReader) ReadRange(context.Context, time.Time, time.Time) ([]domain.ProbeRecord, error) {
	return nil, errors.New("io error")
}

func setup(t *testing.T, recs ...domain.ProbeRecord) *httptest.Server {
	t.Helper()
	store := memory.New()
	for _, r := range recs {
		if err := store.Append(context.Background(), r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return serve(t, query.NewService(store, zap.NewNop()))
}

func serve(t *testing.T, svc *query.Service) *httptest.Server {
	t.Helper()
	srv := NewServer(zap.NewNop(), svc)
	srv.Now = func() time.Time { return sec(3600) }
	// very high rate limits to avoid flakiness in tests
	ts := httptest.NewServer(srv.Router(10_000, 10_000))
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, b
}

func fourBuckets() []domain.ProbeRecord {
	return []domain.ProbeRecord{
		domain.Up(sec(0), time.Millisecond), domain.Up(sec(10), time.Millisecond),
		domain.Up(sec(20), time.Millisecond), domain.Down(sec(30), domain.ReasonTimeout),
		domain.Down(sec(40), domain.ReasonTimeout), domain.Up(sec(50), time.Millisecond),
	}
}

// ---- tests ----

func TestHealthz(t *testing.T) {
	ts := setup(t)
	resp, body := get(t, ts.URL+"/healthz")
	if resp.StatusCode != 200 || string(body) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}
}

func TestUptime_JSON(t *testing.T) {
	ts := setup(t, fourBuckets()...)
	resp, body := get(t, ts.URL+"/api/uptime?start=1704067200&end=1704067260&bucket=15s")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}

	var out struct {
		Total          int      `json:"total"`
		Successes      int      `json:"successes"`
		UptimeFraction *float64 `json:"uptime_fraction"`
		NoData         bool     `json:"no_data"`
		BucketWidth    string   `json:"bucket_width"`
		Series         []struct {
			Start          time.Time `json:"bucket_start"`
			UptimeFraction *float64  `json:"uptime_fraction"`
		} `json:"series"`
		Outages []struct {
			Reason string `json:"reason"`
			Probes int    `json:"probes"`
		} `json:"outages"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Total != 6 || out.Successes != 4 || out.NoData {
		t.Fatalf("unexpected summary: %s", body)
	}
	if out.UptimeFraction == nil || *out.UptimeFraction != 4.0/6.0 {
		t.Fatalf("fraction = %v, want unrounded 4/6", out.UptimeFraction)
	}
	if len(out.Series) != 4 || out.BucketWidth != "15s" {
		t.Fatalf("series = %d width = %q", len(out.Series), out.BucketWidth)
	}
	if len(out.Outages) != 1 || out.Outages[0].Probes != 2 || out.Outages[0].Reason != domain.ReasonTimeout {
		t.Fatalf("outages = %+v", out.Outages)
	}
}

func TestUptime_NoData(t *testing.T) {
	ts := setup(t)

	resp, body := get(t, ts.URL+"/api/uptime")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"no_data":true`) || !strings.Contains(string(body), `"uptime_fraction":null`) {
		t.Fatalf("want explicit no-data payload, got %s", body)
	}

	for _, format := range []string{"svg", "png", "xlsx"} {
		resp, _ := get(t, ts.URL+"/api/uptime?format="+format)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("%s: status = %d, want 204", format, resp.StatusCode)
		}
	}
}

func TestUptime_Formats(t *testing.T) {
	ts := setup(t, fourBuckets()...)
	base := ts.URL + "/api/uptime?start=1704067200&end=1704067260&bucket=15&format="

	resp, body := get(t, base+"csv")
	if resp.StatusCode != 200 || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv") {
		t.Fatalf("csv: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if lines := strings.Count(string(body), "\n"); lines != 5 {
		t.Fatalf("csv lines = %d, want 5", lines)
	}

	resp, body = get(t, base+"svg")
	if resp.StatusCode != 200 || resp.Header.Get("Content-Type") != "image/svg+xml" || !strings.Contains(string(body), "<svg") {
		t.Fatalf("svg: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, body = get(t, base+"png")
	if resp.StatusCode != 200 || !strings.HasPrefix(string(body), "\x89PNG") {
		t.Fatalf("png: %d", resp.StatusCode)
	}

	resp, body = get(t, base+"xlsx")
	if resp.StatusCode != 200 || !strings.HasPrefix(string(body), "PK") {
		t.Fatalf("xlsx: %d", resp.StatusCode)
	}
}

func TestUptime_BadRequests(t *testing.T) {
	ts := setup(t)
	for _, q := range []string{
		"start=1704067260&end=1704067200",
		"bucket=0",
		"bucket=1s&start=0&end=86400",
		"format=gif",
		"start=tomorrow",
	} {
		resp, body := get(t, ts.URL+"/api/uptime?"+q)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", q, resp.StatusCode)
		}
		if !strings.Contains(string(body), `"error"`) {
			t.Fatalf("%s: body = %s", q, body)
		}
	}
}

func TestStoreFailureIs500(t *testing.T) {
	ts := serve(t, query.NewService(failingReader{}, zap.NewNop()))
	for _, path := range []string{"/api/uptime", "/api/records", "/api/disruptions", "/uptime_graph.svg"} {
		resp, _ := get(t, ts.URL+path)
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("%s: status = %d, want 500", path, resp.StatusCode)
		}
	}
	// the server keeps answering
	resp, _ := get(t, ts.URL+"/healthz")
	if resp.StatusCode != 200 {
		t.Fatalf("healthz after failures = %d", resp.StatusCode)
	}
}

func TestRecords(t *testing.T) {
	ts := setup(t, fourBuckets()...)
	resp, body := get(t, ts.URL+"/api/records?start=1704067210&end=1704067240")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Records []domain.ProbeRecord `json:"records"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Records) != 3 || !out.Records[0].Timestamp.Equal(sec(10)) {
		t.Fatalf("records = %+v", out.Records)
	}

	_, body = get(t, ts.URL+"/api/records?start=1&end=2")
	if !strings.Contains(string(body), `"records":[]`) {
		t.Fatalf("empty range should give an empty list: %s", body)
	}
}

func TestDisruptionsAndGraph(t *testing.T) {
	var recs []domain.ProbeRecord
	for i := 0; i < 600; i += 2 {
		if i >= 200 && i < 260 {
			recs = append(recs, domain.Down(sec(i), domain.ReasonTimeout))
			continue
		}
		recs = append(recs, domain.Up(sec(i), time.Millisecond))
	}
	ts := setup(t, recs...)

	resp, body := get(t, ts.URL+"/api/disruptions?start=1704067200&end=1704067800")
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out struct {
		Disruptions []domain.Disruption `json:"disruptions"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Disruptions) != 1 {
		t.Fatalf("disruptions = %+v", out.Disruptions)
	}

	resp, body = get(t, ts.URL+"/uptime_graph.svg")
	if resp.StatusCode != 200 || !strings.Contains(string(body), "<svg") {
		t.Fatalf("graph: %d", resp.StatusCode)
	}
}

func TestGraph_NoData(t *testing.T) {
	ts := setup(t)
	resp, _ := get(t, ts.URL+"/uptime_graph.svg")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
}

func TestGzip(t *testing.T) {
	ts := setup(t, fourBuckets()...)
	req, _ := http.NewRequest("GET", ts.URL+"/api/uptime?start=1704067200&end=1704067260&bucket=1&format=csv", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Fatalf("response not compressed")
	}
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	b, _ := io.ReadAll(zr)
	if !strings.HasPrefix(string(b), "bucket_start,") {
		t.Fatalf("unexpected body %q", b[:20])
	}
}
