package aggregate

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hamed0406/wanuptime/internal/domain"
)

func TestRolling_TrailingWindow(t *testing.T) {
	recs := []domain.ProbeRecord{up(0), down(30, domain.ReasonTimeout), up(60), up(120)}
	got := Rolling(recs, time.Minute)

	want := []float64{1, 0.5, 2.0 / 3.0, 1}
	if len(got) != len(want) {
		t.Fatalf("want %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].UptimeFraction != want[i] {
			t.Fatalf("point %d: want %v got %v", i, want[i], got[i].UptimeFraction)
		}
	}
}

func TestDisruptions_Hysteresis(t *testing.T) {
	pts := []domain.RollingPoint{
		{At: at(0), UptimeFraction: 1},
		{At: at(10), UptimeFraction: 0.7},
		{At: at(20), UptimeFraction: 0.85}, // between thresholds: still disrupted
		{At: at(30), UptimeFraction: 0.95},
		{At: at(40), UptimeFraction: 0.5},
	}
	got := Disruptions(pts, DisruptionStart, DisruptionEnd)
	want := []domain.Disruption{
		{Start: at(10), End: at(30)},
		{Start: at(40), End: at(40), Ongoing: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("disruptions (-want +got):\n%s", diff)
	}
}

func TestGaps_SplitsRuns(t *testing.T) {
	pts := []domain.RollingPoint{{At: at(0)}, {At: at(2)}, {At: at(200)}, {At: at(202)}}
	runs := Gaps(pts, time.Minute)
	if len(runs) != 2 || len(runs[0]) != 2 || len(runs[1]) != 2 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if Gaps(nil, time.Minute) != nil {
		t.Fatalf("want no runs for no points")
	}
}
