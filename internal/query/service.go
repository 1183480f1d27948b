// Package query answers read requests over the record store. It keeps no
// state between calls besides its collaborators.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/wanuptime/internal/aggregate"
	"github.com/hamed0406/wanuptime/internal/domain"
	"github.com/hamed0406/wanuptime/internal/repo"
)

var ErrStore = errors.New("record store failed")

const (
	// GraphSpan is how far back the rolling uptime graph reaches.
	GraphSpan = 24 * time.Hour
	// GraphGap breaks the graph line where records are further apart.
	GraphGap = time.Minute
)

type Service struct {
	records repo.RecordReader
	log     *zap.Logger

	RollingWindow time.Duration
	StartBelow    float64
	EndAbove      float64
}

func NewService(records repo.RecordReader, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		records:       records,
		log:           log,
		RollingWindow: aggregate.DefaultRollingWindow,
		StartBelow:    aggregate.DisruptionStart,
		EndAbove:      aggregate.DisruptionEnd,
	}
}

// Uptime aggregates the records in the window of p.
func (s *Service) Uptime(ctx context.Context, p Params) (domain.AggregateResult, error) {
	if err := p.Validate(); err != nil {
		return domain.AggregateResult{}, err
	}
	recs, err := s.read(ctx, p.Start, p.End)
	if err != nil {
		return domain.AggregateResult{}, err
	}
	return aggregate.Aggregate(recs, p.Start, p.End, p.Bucket)
}

// Records returns the raw records in [start, end).
func (s *Service) Records(ctx context.Context, start, end time.Time) ([]domain.ProbeRecord, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start must be before end", ErrBadRequest)
	}
	return s.read(ctx, start, end)
}

// Disruptions detects disruptions that start in [start, end). Records from
// one rolling window before start are read so the first points are not
// computed from a partial window.
func (s *Service) Disruptions(ctx context.Context, start, end time.Time) ([]domain.Disruption, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start must be before end", ErrBadRequest)
	}
	points, err := s.rolling(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return aggregate.Disruptions(points, s.StartBelow, s.EndAbove), nil
}

// Graph is the data behind the rolling uptime chart.
type Graph struct {
	Start       time.Time
	End         time.Time
	Runs        [][]domain.RollingPoint
	StartBelow  float64
	EndAbove    float64
	Disruptions []domain.Disruption
}

// Empty reports whether there is nothing to draw.
func (g Graph) Empty() bool { return len(g.Runs) == 0 }

// RollingGraph prepares the trailing GraphSpan of rolling uptime ending at now.
func (s *Service) RollingGraph(ctx context.Context, now time.Time) (Graph, error) {
	end := now.UTC()
	start := end.Add(-GraphSpan)
	points, err := s.rolling(ctx, start, end)
	if err != nil {
		return Graph{}, err
	}
	return Graph{
		Start:       start,
		End:         end,
		Runs:        aggregate.Gaps(points, GraphGap),
		StartBelow:  s.StartBelow,
		EndAbove:    s.EndAbove,
		Disruptions: aggregate.Disruptions(points, s.StartBelow, s.EndAbove),
	}, nil
}

func (s *Service) rolling(ctx context.Context, start, end time.Time) ([]domain.RollingPoint, error) {
	recs, err := s.read(ctx, start.Add(-s.RollingWindow), end)
	if err != nil {
		return nil, err
	}
	points := aggregate.Rolling(recs, s.RollingWindow)
	i := 0
	for i < len(points) && points[i].At.Before(start) {
		i++
	}
	return points[i:], nil
}

func (s *Service) read(ctx context.Context, start, end time.Time) ([]domain.ProbeRecord, error) {
	recs, err := s.records.ReadRange(ctx, start, end)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.log.Error("query_failed",
			zap.Time("start", start),
			zap.Time("end", end),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return recs, nil
}
