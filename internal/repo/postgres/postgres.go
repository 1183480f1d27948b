package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/domain"
	"github.com/hamed0406/wanuptime/internal/repo"
)

var _ repo.RecordStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &Store{pool: pool, log: log}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Append(ctx context.Context, r domain.ProbeRecord) error {
	if err := r.Validate(); err != nil {
		return err
	}
	var latencyNS *int64
	if r.Latency != nil {
		v := int64(*r.Latency)
		latencyNS = &v
	}
	var reason *string
	if r.FailureReason != "" {
		reason = &r.FailureReason
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO probe_records (ts_ns, ok, latency_ns, reason)
		 VALUES ($1, $2, $3, $4)`,
		r.Timestamp.UnixNano(), r.Success, latencyNS, reason,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *Store) ReadRange(ctx context.Context, start, end time.Time) ([]domain.ProbeRecord, error) {
	if err := repo.CheckRange(start, end); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT ts_ns, ok, latency_ns, reason
		   FROM probe_records
		  WHERE ts_ns >= $1 AND ts_ns < $2
		  ORDER BY ts_ns, id`, start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("read range: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ProbeRecord, error) {
		var (
			tsNS      int64
			ok        bool
			latencyNS *int64
			reason    *string
		)
		if err := row.Scan(&tsNS, &ok, &latencyNS, &reason); err != nil {
			return domain.ProbeRecord{}, err
		}
		rec := domain.ProbeRecord{Timestamp: time.Unix(0, tsNS).UTC(), Success: ok}
		if latencyNS != nil {
			d := time.Duration(*latencyNS)
			rec.Latency = &d
		}
		if reason != nil {
			rec.FailureReason = *reason
		}
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}
	if out == nil {
		out = []domain.ProbeRecord{}
	}
	return out, nil
}
