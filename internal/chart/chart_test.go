package chart

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/hamed0406/wanuptime/internal/aggregate"
	"github.com/hamed0406/wanuptime/internal/domain"
	"github.com/hamed0406/wanuptime/internal/query"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sec(n int) time.Time { return t0.Add(time.Duration(n) * time.Second) }

func sampleResult(t *testing.T) domain.AggregateResult {
	t.Helper()
	recs := []domain.ProbeRecord{
		domain.Up(sec(0), time.Millisecond),
		domain.Down(sec(10), domain.ReasonTimeout),
		domain.Up(sec(20), time.Millisecond),
		domain.Up(sec(50), time.Millisecond),
	}
	res, err := aggregate.Aggregate(recs, sec(0), sec(60), 15*time.Second)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	return res
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResult(t)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	want := [][]string{
		{"bucket_start", "bucket_end", "total", "uptime_fraction"},
		{"2024-01-01T00:00:00Z", "2024-01-01T00:00:15Z", "2", "0.5"},
		{"2024-01-01T00:00:15Z", "2024-01-01T00:00:30Z", "1", "1"},
		{"2024-01-01T00:00:30Z", "2024-01-01T00:00:45Z", "0", ""},
		{"2024-01-01T00:00:45Z", "2024-01-01T00:01:00Z", "1", "1"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("csv (-want +got):\n%s", diff)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleResult(t), t0); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	x, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer x.Close()

	rows, err := x.GetRows(seriesSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("series rows = %d, want 5", len(rows))
	}
	if rows[1][0] != "2024-01-01 00:00:00" || rows[1][2] != "2" {
		t.Fatalf("first bucket row = %v", rows[1])
	}

	outages, err := x.GetRows(outageSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(outages) != 2 || outages[1][2] != domain.ReasonTimeout {
		t.Fatalf("outage rows = %v", outages)
	}
}

func TestUptimeChart(t *testing.T) {
	res := sampleResult(t)
	for _, format := range []string{query.FormatSVG, query.FormatPNG} {
		var buf bytes.Buffer
		if err := Uptime(&buf, res, format); err != nil {
			t.Fatalf("Uptime(%s): %v", format, err)
		}
		if buf.Len() == 0 {
			t.Fatalf("%s output is empty", format)
		}
		if format == query.FormatSVG && !strings.Contains(buf.String(), "<svg") {
			t.Fatalf("not an svg document")
		}
		if format == query.FormatPNG && !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
			t.Fatalf("not a png image")
		}
	}
}

func TestUptimeChart_NoData(t *testing.T) {
	res, err := aggregate.Aggregate(nil, sec(0), sec(60), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if err := Uptime(&bytes.Buffer{}, res, query.FormatSVG); !errors.Is(err, ErrNoData) {
		t.Fatalf("want ErrNoData, got %v", err)
	}
	if err := Uptime(&bytes.Buffer{}, res, "gif"); err == nil {
		t.Fatal("want error for unknown format")
	}
}

func TestRollingChart(t *testing.T) {
	var recs []domain.ProbeRecord
	for i := 0; i < 600; i += 2 {
		if i > 200 && i < 260 {
			recs = append(recs, domain.Down(sec(i), domain.ReasonTimeout))
			continue
		}
		recs = append(recs, domain.Up(sec(i), time.Millisecond))
	}
	points := aggregate.Rolling(recs, time.Minute)
	g := query.Graph{
		Start:      sec(0),
		End:        sec(600),
		Runs:       aggregate.Gaps(points, time.Minute),
		StartBelow: aggregate.DisruptionStart,
		EndAbove:   aggregate.DisruptionEnd,
	}

	var buf bytes.Buffer
	if err := Rolling(&buf, g, query.FormatSVG); err != nil {
		t.Fatalf("Rolling: %v", err)
	}
	if !strings.Contains(buf.String(), "Disruption start threshold") {
		t.Fatalf("threshold legend missing")
	}
}
