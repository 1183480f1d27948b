// Package aggregate turns an ordered sequence of probe records into uptime
// fractions, outage intervals and bucketed series.
package aggregate

import (
	"errors"
	"sort"
	"time"

	"github.com/hamed0406/wanuptime/internal/domain"
)

var (
	ErrInvalidWindow = errors.New("window start must be before window end")
	ErrInvalidBucket = errors.New("bucket width must be positive")
)

// Aggregate computes the result for records in [start, end), partitioned into
// buckets of width starting at start. The last bucket is cut at end.
func Aggregate(records []domain.ProbeRecord, start, end time.Time, width time.Duration) (domain.AggregateResult, error) {
	if !start.Before(end) {
		return domain.AggregateResult{}, ErrInvalidWindow
	}
	if width <= 0 {
		return domain.AggregateResult{}, ErrInvalidBucket
	}

	in := Window(records, start, end)

	res := domain.AggregateResult{
		WindowStart: start,
		WindowEnd:   end,
		BucketWidth: domain.Duration(width),
		Total:       len(in),
		Outages:     Outages(in, end),
		Series:      Buckets(in, start, end, width),
	}
	for _, r := range in {
		if r.Success {
			res.Successes++
		}
	}
	res.UptimeFraction = domain.Fraction(res.Successes, res.Total)

	return res, nil
}

// Window returns the records with timestamps in [start, end), ascending.
// The input is not modified.
func Window(records []domain.ProbeRecord, start, end time.Time) []domain.ProbeRecord {
	out := make([]domain.ProbeRecord, 0, len(records))
	for _, r := range records {
		if !r.Timestamp.Before(start) && r.Timestamp.Before(end) {
			out = append(out, r)
		}
	}
	if !sort.SliceIsSorted(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) }) {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	}
	return out
}

// Outages folds ordered records through an up/down state machine. A failing
// run open at the last record is reported as ongoing, ending at windowEnd.
func Outages(records []domain.ProbeRecord, windowEnd time.Time) []domain.Outage {
	out := []domain.Outage{}
	var cur *domain.Outage
	var last time.Time

	for _, r := range records {
		switch {
		case !r.Success && cur == nil:
			cur = &domain.Outage{Start: r.Timestamp, Reason: r.FailureReason, Probes: 1}
		case !r.Success:
			cur.Probes++
		case cur != nil:
			cur.End = last
			out = append(out, *cur)
			cur = nil
		}
		last = r.Timestamp
	}

	if cur != nil {
		cur.End = windowEnd
		cur.Ongoing = true
		out = append(out, *cur)
	}
	return out
}

// Buckets splits [start, end) into consecutive buckets of width and computes
// each bucket's uptime over only its own records. Records must be ascending
// and inside the window.
func Buckets(records []domain.ProbeRecord, start, end time.Time, width time.Duration) []domain.Bucket {
	n := BucketCount(start, end, width)
	series := make([]domain.Bucket, 0, n)

	i := 0
	for b := start; b.Before(end); b = b.Add(width) {
		be := b.Add(width)
		if be.After(end) {
			be = end
		}

		var total, ok int
		for ; i < len(records) && records[i].Timestamp.Before(be); i++ {
			if records[i].Timestamp.Before(b) {
				continue
			}
			total++
			if records[i].Success {
				ok++
			}
		}

		series = append(series, domain.Bucket{
			Start:          b,
			End:            be,
			Total:          total,
			UptimeFraction: domain.Fraction(ok, total),
		})
	}
	return series
}

// BucketCount is the number of buckets Buckets produces for the window.
func BucketCount(start, end time.Time, width time.Duration) int {
	if width <= 0 || !start.Before(end) {
		return 0
	}
	span := end.Sub(start)
	n := int(span / width)
	if span%width != 0 {
		n++
	}
	return n
}
