package query

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/wanuptime/internal/aggregate"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatSVG  = "svg"
	FormatPNG  = "png"
)

const (
	DefaultWindow = 24 * time.Hour
	DefaultBucket = 24 * time.Hour
	MaxBuckets    = 10000
)

var ErrBadRequest = errors.New("bad request")

// Params selects a window of records and how to present it.
type Params struct {
	Start  time.Time
	End    time.Time
	Bucket time.Duration
	Format string
}

// ParseParams reads start, end, bucket and format from q. Missing values
// default to the 24 hours before now, one bucket per day, and JSON.
func ParseParams(q url.Values, now time.Time) (Params, error) {
	p := Params{Bucket: DefaultBucket, Format: FormatJSON}
	var errs error

	p.End = now.UTC()
	if v := q.Get("end"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("end: %w", err))
		} else {
			p.End = t
		}
	}
	p.Start = p.End.Add(-DefaultWindow)
	if v := q.Get("start"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("start: %w", err))
		} else {
			p.Start = t
		}
	}
	if v := q.Get("bucket"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("bucket: %w", err))
		} else {
			p.Bucket = d
		}
	}
	if v := q.Get("format"); v != "" {
		p.Format = strings.ToLower(v)
	}

	if errs != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrBadRequest, errs)
	}
	return p, p.Validate()
}

// Validate checks the window before any store access.
func (p Params) Validate() error {
	switch {
	case !p.Start.Before(p.End):
		return fmt.Errorf("%w: start must be before end", ErrBadRequest)
	case p.Bucket <= 0:
		return fmt.Errorf("%w: bucket must be positive", ErrBadRequest)
	case aggregate.BucketCount(p.Start, p.End, p.Bucket) > MaxBuckets:
		return fmt.Errorf("%w: window holds more than %d buckets", ErrBadRequest, MaxBuckets)
	}
	switch p.Format {
	case FormatJSON, FormatCSV, FormatXLSX, FormatSVG, FormatPNG:
		return nil
	}
	return fmt.Errorf("%w: unknown format %q", ErrBadRequest, p.Format)
}

// parseTime accepts RFC 3339 or unix seconds.
func parseTime(v string) (time.Time, error) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor unix seconds", v)
	}
	return t.UTC(), nil
}

// parseDuration accepts a Go duration or whole seconds.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs > math.MaxInt64/int64(time.Second) || secs < math.MinInt64/int64(time.Second) {
			return 0, fmt.Errorf("%d seconds is out of range", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%q is neither a duration nor seconds", v)
	}
	return d, nil
}

// ParseRange reads only start and end, for endpoints that do not bucket.
func ParseRange(q url.Values, now time.Time) (start, end time.Time, err error) {
	end = now.UTC()
	if v := q.Get("end"); v != "" {
		if end, err = parseTime(v); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: end: %v", ErrBadRequest, err)
		}
	}
	start = end.Add(-DefaultWindow)
	if v := q.Get("start"); v != "" {
		if start, err = parseTime(v); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: start: %v", ErrBadRequest, err)
		}
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start must be before end", ErrBadRequest)
	}
	return start, end, nil
}
