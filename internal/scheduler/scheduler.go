package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/memohub/memo-gateway/internal/metrics"
	"github.com/memohub/memo-gateway/internal/state"
)

// Scheduler runs the periodic jobs of the gateway. Currently this is
// only the memory stats snapshot feeding the gauges.
type Scheduler struct {
	cron   *cron.Cron
	store  *state.Store
	logger *slog.Logger
}

// NewScheduler creates a scheduler over the conversation store
func NewScheduler(store *state.Store, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		cron:   cron.New(),
		store:  store,
		logger: logger,
	}
	s.scheduleStatsSnapshot()
	return s
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// scheduleStatsSnapshot publishes store stats every 10 minutes
func (s *Scheduler) scheduleStatsSnapshot() {
	_, err := s.cron.AddFunc("@every 10m", s.snapshotStats)
	if err != nil {
		s.logger.Error("failed to schedule stats snapshot", "error", err)
	}
}

func (s *Scheduler) snapshotStats() {
	stats := s.store.Stats()
	metrics.ActiveHistories.Set(float64(stats.Histories))
	metrics.StoredTurns.Set(float64(stats.Turns))
	s.logger.Info("memory stats",
		"histories", stats.Histories,
		"turns", stats.Turns,
		"users", stats.Users)
}
