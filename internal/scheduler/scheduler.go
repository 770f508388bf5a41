package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/calendariko/calendariko/internal/gcal"
	"github.com/calendariko/calendariko/internal/logging"
	"github.com/calendariko/calendariko/internal/signals"
)

// ErrSyncInProgress is returned when a sync is requested while one runs.
var ErrSyncInProgress = errors.New("mirror sync already in progress")

const recordsChangedKey = "scheduler-mirror"

// Syncer runs one mirror pass.
type Syncer interface {
	Sync(ctx context.Context) (gcal.SyncResult, error)
}

// Stats reports what the scheduler has done since start.
type Stats struct {
	Runs       int64     `json:"runs"`
	Failures   int64     `json:"failures"`
	Running    bool      `json:"running"`
	LastSyncAt time.Time `json:"lastSyncAt"`
	LastError  string    `json:"lastError,omitempty"`
}

// Scheduler runs the mirror sync on a cron expression and after record writes
type Scheduler struct {
	spec     string
	syncer   Syncer
	cron     *cron.Cron
	running  *atomic.Bool
	runs     *atomic.Int64
	failures *atomic.Int64
	lastSync *atomic.Time
	lastErr  *atomic.String
	logger   zerolog.Logger
}

// New creates a new Scheduler instance
func New(spec string, syncer Syncer) *Scheduler {
	return &Scheduler{
		spec:     spec,
		syncer:   syncer,
		cron:     cron.New(),
		running:  atomic.NewBool(false),
		runs:     atomic.NewInt64(0),
		failures: atomic.NewInt64(0),
		lastSync: atomic.NewTime(time.Time{}),
		lastErr:  atomic.NewString(""),
		logger:   logging.GetLogger("scheduler"),
	}
}

// Start registers the cron job and the records listener. Scheduled runs use
// ctx, which should outlive the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runScheduled(ctx, "cron")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule mirror sync %q: %w", s.spec, err)
	}

	signals.OnRecordsChanged(func(ctx context.Context, data signals.RecordsChangedData) {
		if data.Kind != signals.RecordEvent {
			return
		}
		go s.runScheduled(context.WithoutCancel(ctx), "records_changed")
	}, recordsChangedKey)

	s.cron.Start()
	s.logger.Info().Str("spec", s.spec).Msg("Mirror scheduler started")
	return nil
}

// Stop halts the cron and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	signals.RecordsChanged.RemoveListener(recordsChangedKey)
	stopped := s.cron.Stop()

	select {
	case <-stopped.Done():
		s.logger.Info().Msg("Mirror scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("Mirror scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) runScheduled(ctx context.Context, trigger string) {
	_, err := s.RunNow(ctx)
	if errors.Is(err, ErrSyncInProgress) {
		s.logger.Debug().Str("trigger", trigger).Msg("Skipping mirror sync, one is already running")
	}
}

// RunNow runs a sync unless one is already in flight.
func (s *Scheduler) RunNow(ctx context.Context) (gcal.SyncResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return gcal.SyncResult{}, ErrSyncInProgress
	}
	defer s.running.Store(false)

	s.runs.Inc()
	result, err := s.syncer.Sync(ctx)
	s.lastSync.Store(time.Now())
	if err != nil {
		s.failures.Inc()
		s.lastErr.Store(err.Error())
		s.logger.Error().Err(err).Msg("Mirror sync failed")
		return result, err
	}
	s.lastErr.Store("")
	return result, nil
}

// Stats returns a snapshot of the scheduler counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Runs:       s.runs.Load(),
		Failures:   s.failures.Load(),
		Running:    s.running.Load(),
		LastSyncAt: s.lastSync.Load(),
		LastError:  s.lastErr.Load(),
	}
}
