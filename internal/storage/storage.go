// Package storage opens the record store selected by configuration.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/config"
	"github.com/hamed0406/wanuptime/internal/repo"
	"github.com/hamed0406/wanuptime/internal/repo/logfile"
	"github.com/hamed0406/wanuptime/internal/repo/memory"
	pg "github.com/hamed0406/wanuptime/internal/repo/postgres"
)

// Open returns the configured store and a function that releases it.
func Open(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.RecordStore, func() error, error) {
	switch cfg.Store {
	case config.StoreFile, "":
		s, err := logfile.Open(cfg.RecordDir(), log)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.StorePostgres:
		s, err := pg.New(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		return s, func() error { s.Close(); return nil }, nil
	case config.StoreMemory:
		log.Warn("store_memory", zap.String("note", "records are lost on exit and not shared between processes"))
		return memory.New(), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
}
