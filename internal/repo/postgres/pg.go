package postgres

import (
	"context"
	"fmt"
)

// Schema is applied on every start; statements are idempotent.
// Timestamps are unix nanoseconds; TIMESTAMPTZ keeps only microseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS probe_records (
  id         BIGSERIAL PRIMARY KEY,
  ts_ns      BIGINT NOT NULL,
  ok         BOOLEAN NOT NULL,
  latency_ns BIGINT NULL,
  reason     TEXT NULL
);

CREATE INDEX IF NOT EXISTS idx_probe_records_ts_ns ON probe_records (ts_ns);
`

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
