package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/Xassemblianist/ATALWF/internal/acquire"
)

// Refresher is implemented by weather.Service.
type Refresher interface {
	Refresh(ctx context.Context) (acquire.Snapshot, error)
}

// Scheduler periodically refreshes the dataset.
type Scheduler struct {
	logger    *zap.SugaredLogger
	scheduler *gocron.Scheduler
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. Each run is bounded by timeout when it is
// positive.
func New(logger *zap.SugaredLogger, refresher Refresher, interval, timeout time.Duration) *Scheduler {
	return &Scheduler{
		logger:    logger,
		scheduler: gocron.NewScheduler(time.UTC),
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the refresh job and starts the underlying scheduler. The
// first run happens immediately. A run still in progress when the next one
// is due makes the scheduler skip it.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("Periodic refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Infow("Periodic refresh scheduled", "interval", s.interval)
	return nil
}

func (s *Scheduler) run() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.logger.Debug("Running scheduled refresh")
	snap, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.logger.Errorw("Scheduled refresh failed", "err", err)
		return
	}
	s.logger.Infow("Scheduled refresh completed", "id", snap.ID, "bytes", snap.Bytes)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
