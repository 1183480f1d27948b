package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/config"
	"github.com/hamed0406/wanuptime/internal/domain"
	"github.com/hamed0406/wanuptime/internal/repo/logfile"
	"github.com/hamed0406/wanuptime/internal/repo/memory"
)

func TestOpen_File(t *testing.T) {
	cfg := config.Default()
	cfg.LogDir = t.TempDir()

	s, closeFn, err := Open(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	fs, ok := s.(*logfile.Store)
	if !ok {
		t.Fatalf("want *logfile.Store, got %T", s)
	}
	if fs.Dir() != filepath.Join(cfg.LogDir, "records") {
		t.Fatalf("dir = %q", fs.Dir())
	}

	at := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	if err := s.Append(context.Background(), domain.Up(at, time.Millisecond)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, err := s.ReadRange(context.Background(), at, at.Add(time.Second))
	if err != nil || len(got) != 1 {
		t.Fatalf("ReadRange = %v, %v", got, err)
	}
}

func TestOpen_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.Store = config.StoreMemory
	s, closeFn, err := Open(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.(*memory.Store); !ok {
		t.Fatalf("want *memory.Store, got %T", s)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpen_Unknown(t *testing.T) {
	cfg := config.Default()
	cfg.Store = "redis"
	if _, _, err := Open(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatal("want error for unknown store")
	}
}
