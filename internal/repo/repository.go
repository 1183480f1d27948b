package repo

import (
	"context"
	"errors"
	"time"

	"github.com/hamed0406/wanuptime/internal/domain"
)

var ErrInvalidRange = errors.New("range start is after range end")

// Ports (interfaces): the monitor writes through RecordWriter, the query
// service reads through RecordReader.
type RecordWriter interface {
	Append(ctx context.Context, r domain.ProbeRecord) error
}

type RecordReader interface {
	// ReadRange returns records with timestamp in [start, end), ascending.
	ReadRange(ctx context.Context, start, end time.Time) ([]domain.ProbeRecord, error)
}

type RecordStore interface {
	RecordWriter
	RecordReader
}

// CheckRange validates the arguments of ReadRange.
func CheckRange(start, end time.Time) error {
	if start.After(end) {
		return ErrInvalidRange
	}
	return nil
}
