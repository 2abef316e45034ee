package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rankscout/serptrack/internal/engine"
	"github.com/rankscout/serptrack/internal/serp"
)

const defaultLookbackDays = 30

// Recorder hands a completed session to persistence and classifies each
// keyword's trend against the lookback window.
type Recorder struct {
	store        serp.PerformanceStore
	lookbackDays int
	logger       *zap.Logger
}

// NewRecorder builds a Recorder over a performance store.
func NewRecorder(store serp.PerformanceStore, lookbackDays int, logger *zap.Logger) *Recorder {
	if lookbackDays <= 0 {
		lookbackDays = defaultLookbackDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, lookbackDays: lookbackDays, logger: logger}
}

// Record persists every ranking in the session and returns the per-keyword
// trend comparisons. History is read before today's row is written so the
// comparison runs against genuinely prior data.
func (r *Recorder) Record(ctx context.Context, s *serp.Session) ([]serp.Comparison, error) {
	comparisons := make([]serp.Comparison, 0, len(s.Results))

	for _, res := range s.Results {
		prior, err := r.store.GetPerformanceTrackingByKeyword(ctx, res.Keyword, s.Request.OwnerID, r.lookbackDays)
		if err != nil {
			return comparisons, fmt.Errorf("load history for %q: %w", res.Keyword, err)
		}
		comparisons = append(comparisons, serp.Compare(res.Keyword, res.Rank, prior))

		rec := serp.PerformanceRecord{
			Keyword:         res.Keyword,
			OwnerID:         s.Request.OwnerID,
			RankBasisPoints: res.Rank * 100,
			URL:             res.MatchedURL,
			Device:          res.Device,
			Country:         engine.LocaleCode(res.Location),
			Date:            res.CheckedAt.Format("2006-01-02"),
		}
		if err := r.store.CreatePerformanceTracking(ctx, rec); err != nil {
			return comparisons, fmt.Errorf("persist ranking for %q: %w", res.Keyword, err)
		}
	}

	r.logger.Info("session recorded",
		zap.String("session_id", s.ID),
		zap.Int("rankings", len(s.Results)))
	return comparisons, nil
}
