package workflow

import (
	"context"
	"errors"
	"sync"

	"github.com/de-tools/emr-cost/pkg/services/cost"
	costsql "github.com/de-tools/emr-cost/pkg/store/sql"
	"github.com/rs/zerolog"
)

var (
	ErrAlreadyRunning = errors.New("cost sync already running")
	ErrNotRunning     = errors.New("cost sync not running")
)

// Controller owns the lifecycle of the background cost sync.
type Controller interface {
	Start(ctx context.Context) error
	Cancel(ctx context.Context) error
	// Status returns the latest progress and whether the sync is running.
	Status() (RunnerProgress, bool)
}

type DefaultController struct {
	calculator cost.Calculator
	store      costsql.CostStore
	config     RunnerConfig

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	runner     *Runner
	progress   RunnerProgress
}

func NewController(calculator cost.Calculator, store costsql.CostStore, config RunnerConfig) *DefaultController {
	return &DefaultController{
		calculator: calculator,
		store:      store,
		config:     config,
	}
}

func (ctrl *DefaultController) Start(ctx context.Context) error {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if ctrl.runner != nil {
		select {
		case <-ctrl.runner.Done():
		default:
			return ErrAlreadyRunning
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	runner := NewRunner(ctrl.calculator, ctrl.store, ctrl.config)
	ctrl.cancelFunc = cancel
	ctrl.runner = runner

	go runner.Run(ctx)
	go ctrl.track(ctx, runner)
	return nil
}

func (ctrl *DefaultController) Cancel(_ context.Context) error {
	ctrl.mu.Lock()
	runner, cancel := ctrl.runner, ctrl.cancelFunc
	ctrl.runner, ctrl.cancelFunc = nil, nil
	ctrl.mu.Unlock()

	if runner == nil {
		return ErrNotRunning
	}
	cancel()
	<-runner.Done()
	return nil
}

func (ctrl *DefaultController) Status() (RunnerProgress, bool) {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	running := false
	if ctrl.runner != nil {
		select {
		case <-ctrl.runner.Done():
		default:
			running = true
		}
	}
	return ctrl.progress, running
}

func (ctrl *DefaultController) track(ctx context.Context, runner *Runner) {
	logger := zerolog.Ctx(ctx)
	for p := range runner.Progress() {
		ctrl.mu.Lock()
		ctrl.progress = p
		ctrl.mu.Unlock()

		logger.Info().
			Int64("processed_clusters", p.ProcessedClusters).
			Int64("skipped_batches", p.SkippedBatches).
			Time("last_processed_at", p.LastProcessedAt).
			Msg("cost sync progress")
	}
}
