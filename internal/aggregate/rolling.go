package aggregate

import (
	"time"

	"github.com/hamed0406/wanuptime/internal/domain"
)

const (
	DefaultRollingWindow = time.Minute

	// Rolling uptime under DisruptionStart opens a disruption, and it stays
	// open until rolling uptime climbs over DisruptionEnd.
	DisruptionStart = 0.80
	DisruptionEnd   = 0.90
)

// Rolling computes, for every record, the uptime over the trailing window of
// records ending at it. Records must be ascending.
func Rolling(records []domain.ProbeRecord, window time.Duration) []domain.RollingPoint {
	if window <= 0 {
		window = DefaultRollingWindow
	}
	out := make([]domain.RollingPoint, 0, len(records))

	lo, ok := 0, 0
	for hi, r := range records {
		if r.Success {
			ok++
		}
		for records[lo].Timestamp.Before(r.Timestamp.Add(-window)) {
			if records[lo].Success {
				ok--
			}
			lo++
		}
		out = append(out, domain.RollingPoint{
			At:             r.Timestamp,
			UptimeFraction: float64(ok) / float64(hi-lo+1),
		})
	}
	return out
}

// Disruptions runs a hysteresis detector over rolling points.
func Disruptions(points []domain.RollingPoint, startBelow, endAbove float64) []domain.Disruption {
	out := []domain.Disruption{}
	var cur *domain.Disruption

	for _, p := range points {
		switch {
		case cur == nil && p.UptimeFraction < startBelow:
			cur = &domain.Disruption{Start: p.At}
		case cur != nil && p.UptimeFraction > endAbove:
			cur.End = p.At
			out = append(out, *cur)
			cur = nil
		}
	}

	if cur != nil {
		cur.End = points[len(points)-1].At
		cur.Ongoing = true
		out = append(out, *cur)
	}
	return out
}

// Gaps splits points into runs where no two neighbours are more than maxGap
// apart, so a chart can break its line where the monitor was not running.
func Gaps(points []domain.RollingPoint, maxGap time.Duration) [][]domain.RollingPoint {
	var runs [][]domain.RollingPoint
	start := 0
	for i := 1; i <= len(points); i++ {
		if i == len(points) || points[i].At.Sub(points[i-1].At) > maxGap {
			if i > start {
				runs = append(runs, points[start:i])
			}
			start = i
		}
	}
	return runs
}
