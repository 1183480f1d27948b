package domain

import "time"

// AggregateResult is computed per query from a range of records and never stored.
type AggregateResult struct {
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	BucketWidth    Duration  `json:"bucket_width"`
	Total          int       `json:"total"`
	Successes      int       `json:"successes"`
	UptimeFraction *float64  `json:"uptime_fraction"` // nil when Total == 0
	Outages        []Outage  `json:"outages"`
	Series         []Bucket  `json:"series"`
}

// NoData reports whether the window held no records at all.
func (a AggregateResult) NoData() bool { return a.Total == 0 }

// Outage is a maximal run of consecutive failed probes.
type Outage struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Reason  string    `json:"reason"`
	Ongoing bool      `json:"ongoing"`
	Probes  int       `json:"probes"`
}

type Bucket struct {
	Start          time.Time `json:"bucket_start"`
	End            time.Time `json:"bucket_end"`
	Total          int       `json:"total"`
	UptimeFraction *float64  `json:"uptime_fraction"` // nil when Total == 0
}

// RollingPoint is the uptime over a trailing window that ends at At.
type RollingPoint struct {
	At             time.Time `json:"at"`
	UptimeFraction float64   `json:"uptime_fraction"`
}

// Disruption is a period where rolling uptime fell under the start threshold
// and had not yet climbed back over the end threshold.
type Disruption struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Ongoing bool      `json:"ongoing"`
}

// Duration marshals as Go duration text ("24h0m0s").
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Fraction returns a pointer to n/total, or nil when total is zero.
func Fraction(n, total int) *float64 {
	if total == 0 {
		return nil
	}
	f := float64(n) / float64(total)
	return &f
}
