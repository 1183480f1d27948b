package domain

import (
	"errors"
	"math"
	"time"

	"github.com/goccy/go-json"
)

// Failure reasons recorded for unsuccessful probes.
const (
	ReasonTimeout     = "timeout"
	ReasonUnreachable = "unreachable"
	ReasonDNS         = "dns"
	ReasonRefused     = "refused"
	ReasonPacketLoss  = "packet_loss"
	ReasonHTTPStatus  = "http_status"
	ReasonError       = "error"
)

var (
	ErrMissingTimestamp = errors.New("record has no timestamp")
	ErrLatencyOnFailure = errors.New("failed record must not carry a latency")
	ErrReasonOnSuccess  = errors.New("successful record must not carry a failure reason")
	ErrMissingReason    = errors.New("failed record needs a failure reason")
)

// ProbeRecord is one observation of the target. It is never modified after
// it has been appended to a store.
type ProbeRecord struct {
	Timestamp     time.Time
	Success       bool
	Latency       *time.Duration // set only when Success
	FailureReason string         // set only when !Success
}

// Up builds a successful record.
func Up(at time.Time, latency time.Duration) ProbeRecord {
	return ProbeRecord{Timestamp: at.UTC(), Success: true, Latency: &latency}
}

// Down builds a failed record.
func Down(at time.Time, reason string) ProbeRecord {
	if reason == "" {
		reason = ReasonError
	}
	return ProbeRecord{Timestamp: at.UTC(), FailureReason: reason}
}

func (r ProbeRecord) Validate() error {
	if r.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	if r.Success {
		if r.FailureReason != "" {
			return ErrReasonOnSuccess
		}
		return nil
	}
	if r.Latency != nil {
		return ErrLatencyOnFailure
	}
	if r.FailureReason == "" {
		return ErrMissingReason
	}
	return nil
}

// wireRecord is the on-disk and over-the-wire shape of a ProbeRecord.
type wireRecord struct {
	Timestamp time.Time `json:"ts"`
	Success   bool      `json:"ok"`
	LatencyMS *float64  `json:"latency_ms,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

func (r ProbeRecord) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		Timestamp: r.Timestamp.UTC(),
		Success:   r.Success,
		Reason:    r.FailureReason,
	}
	if r.Latency != nil {
		ms := float64(*r.Latency) / float64(time.Millisecond)
		w.LatencyMS = &ms
	}
	return json.Marshal(w)
}

func (r *ProbeRecord) UnmarshalJSON(b []byte) error {
	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = ProbeRecord{
		Timestamp:     w.Timestamp.UTC(),
		Success:       w.Success,
		FailureReason: w.Reason,
	}
	if w.LatencyMS != nil {
		d := time.Duration(math.Round(*w.LatencyMS * float64(time.Millisecond)))
		r.Latency = &d
	}
	return nil
}
