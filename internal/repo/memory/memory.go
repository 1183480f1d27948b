package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hamed0406/wanuptime/internal/domain"
	"github.com/hamed0406/wanuptime/internal/repo"
)

// Store keeps records in memory. Nothing survives a restart.
type Store struct {
	mu      sync.RWMutex
	records []domain.ProbeRecord
}

func New() *Store {
	return &Store{
		records: make([]domain.ProbeRecord, 0, 128),
	}
}

func (m *Store) Append(ctx context.Context, r domain.ProbeRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *Store) ReadRange(ctx context.Context, start, end time.Time) ([]domain.ProbeRecord, error) {
	if err := repo.CheckRange(start, end); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	lo := sort.Search(len(m.records), func(i int) bool { return !m.records[i].Timestamp.Before(start) })
	hi := sort.Search(len(m.records), func(i int) bool { return !m.records[i].Timestamp.Before(end) })
	if hi < lo {
		hi = lo
	}
	out := make([]domain.ProbeRecord, hi-lo)
	copy(out, m.records[lo:hi])
	return out, nil
}

// Len reports how many records have been appended.
func (m *Store) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

var _ repo.RecordStore = (*Store)(nil)
