package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hamed0406/wanuptime/internal/domain"
)

func TestMemoryStore_AppendAndReadRange(t *testing.T) {
	ctx := context.Background()
	s := New()

	var all []domain.ProbeRecord
	for i := 0; i < 10; i++ {
		r := domain.Up(time.Unix(int64(i*10), 0), time.Duration(i)*time.Millisecond)
		if i%3 == 0 {
			r = domain.Down(time.Unix(int64(i*10), 0), domain.ReasonTimeout)
		}
		if err := s.Append(ctx, r); err != nil {
			t.Fatalf("Append: %v", err)
		}
		all = append(all, r)
	}

	got, err := s.ReadRange(ctx, time.Unix(20, 0), time.Unix(50, 0))
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if diff := cmp.Diff(all[2:5], got); diff != "" {
		t.Fatalf("range (-want +got):\n%s", diff)
	}

	got, err = s.ReadRange(ctx, time.Unix(0, 0), time.Unix(1000, 0))
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if diff := cmp.Diff(all, got); diff != "" {
		t.Fatalf("full range (-want +got):\n%s", diff)
	}

	if got, _ := s.ReadRange(ctx, time.Unix(20, 0), time.Unix(20, 0)); len(got) != 0 {
		t.Fatalf("empty range returned %d records", len(got))
	}
}

func TestMemoryStore_RejectsInvalidRecord(t *testing.T) {
	s := New()
	if err := s.Append(context.Background(), domain.ProbeRecord{}); err == nil {
		t.Fatalf("expected validation error")
	}
	if s.Len() != 0 {
		t.Fatalf("invalid record was stored")
	}
}
