package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/de-tools/emr-cost/pkg/services/cost"
	"github.com/de-tools/emr-cost/pkg/store/pricing"
	costsql "github.com/de-tools/emr-cost/pkg/store/sql"
	"github.com/rs/zerolog"
)

// Runner walks cluster creation time in batches, computes the cost of every
// cluster created in a batch and saves it. Once it reaches the present it keeps
// polling for new clusters every SleepInterval.
type Runner struct {
	calculator cost.Calculator
	store      costsql.CostStore
	done       chan struct{}
	progress   chan RunnerProgress
	config     RunnerConfig

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type RunnerConfig struct {
	// Lookback is how far before the start the first batch begins.
	Lookback      time.Duration
	BatchInterval time.Duration
	SleepInterval time.Duration
	// MaxAttempts is how often a failing batch is tried before it is skipped.
	MaxAttempts int
}

const defaultMaxAttempts = 5

type RunnerProgress struct {
	ProcessedClusters int64
	SkippedBatches    int64
	LastProcessedAt   time.Time
	LastRunID         string
}

func NewRunner(calculator cost.Calculator, store costsql.CostStore, config RunnerConfig) *Runner {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	return &Runner{
		calculator: calculator,
		store:      store,
		done:       make(chan struct{}),
		progress:   make(chan RunnerProgress, 100),
		config:     config,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) Progress() <-chan RunnerProgress {
	return r.progress
}

func (r *Runner) Run(ctx context.Context) {
	logger := zerolog.Ctx(ctx).With().Str("component", "cost_sync").Logger()
	defer close(r.done)
	defer close(r.progress)

	startTime := r.now().Add(-r.config.Lookback)
	progress := RunnerProgress{}
	attempts := 0
	for {
		if ctx.Err() != nil {
			logger.Info().Msg("cost sync stopped")
			return
		}

		endTime := startTime.Add(r.config.BatchInterval)
		caughtUp := false
		if now := r.now(); !endTime.Before(now) {
			endTime = now
			caughtUp = true
		}

		batchLogger := logger.With().Time("created_after", startTime).Time("created_before", endTime).Logger()
		batchCtx := batchLogger.WithContext(ctx)

		saved, runID, err := r.syncBatch(batchCtx, startTime, endTime)
		progress.ProcessedClusters += int64(saved)
		if runID != "" {
			progress.LastRunID = runID
		}
		if errors.Is(err, domain.ErrDataIntegrity) {
			batchLogger.Error().Err(err).Msg("cost sync aborted on inconsistent AWS data")
			return
		}
		if err != nil {
			attempts++
			if !isPermanent(err) && attempts < r.config.MaxAttempts {
				batchLogger.Error().Err(err).Int("attempt", attempts).Msg("failed to sync batch, retrying")
				if r.sleep(ctx, r.config.SleepInterval) != nil {
					return
				}
				continue
			}
			batchLogger.Error().Err(err).Int("attempts", attempts).Msg("skipping batch")
			progress.SkippedBatches++
		}
		attempts = 0

		progress.LastProcessedAt = endTime
		select {
		case r.progress <- progress:
		case <-ctx.Done():
			return
		}

		startTime = endTime
		if caughtUp {
			if r.sleep(ctx, r.config.SleepInterval) != nil {
				logger.Info().Msg("cost sync stopped")
				return
			}
		}
	}
}

// syncBatch computes and saves the cost of every cluster created in
// [startTime, endTime). It returns how many costs were saved before any error.
func (r *Runner) syncBatch(ctx context.Context, startTime, endTime time.Time) (int, string, error) {
	_, costs, err := r.calculator.ComputeTotalCostByDates(ctx, startTime, endTime)
	if err != nil {
		return 0, "", fmt.Errorf("failed to compute cluster costs: %w", err)
	}

	var runID string
	for i, c := range costs {
		id, err := r.store.Save(ctx, c)
		if err != nil {
			return i, runID, fmt.Errorf("failed to save cost of cluster %s: %w", c.ClusterID, err)
		}
		runID = id
	}
	return len(costs), runID, nil
}

// isPermanent reports errors that retrying the same batch cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, pricing.ErrPriceNotFound) || errors.Is(err, cost.ErrInvalidWindow)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
