package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/config"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Dispatcher runs one sweep for a severity
type Dispatcher interface {
	Dispatch(ctx context.Context, severity models.Severity) (SweepResult, error)
}

// Scheduler drives the periodic WARNING and CRITICAL sweeps
type Scheduler struct {
	cron       *cron.Cron
	dispatcher Dispatcher
	entries    map[models.Severity]cron.EntryID

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler registers both sweeps. Schedules use six fields, seconds first.
func NewScheduler(dispatcher Dispatcher, cfg config.DispatchConfig) (*Scheduler, error) {
	log := cronLogger{logger: logger.Component("scheduler")}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(time.Local),
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log)),
	)

	s := &Scheduler{
		cron:       c,
		dispatcher: dispatcher,
		entries:    make(map[models.Severity]cron.EntryID, 2),
		ctx:        context.Background(),
	}

	schedules := map[models.Severity]string{
		models.SeverityWarning:  cfg.WarningSchedule,
		models.SeverityCritical: cfg.CriticalSchedule,
	}
	for _, severity := range Severities {
		expr := schedules[severity]
		id, err := c.AddFunc(expr, s.job(severity))
		if err != nil {
			return nil, fmt.Errorf("invalid %s schedule %q: %w", severity, expr, err)
		}
		s.entries[severity] = id
	}
	return s, nil
}

func (s *Scheduler) job(severity models.Severity) func() {
	return func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()

		result, err := s.dispatcher.Dispatch(ctx, severity)
		if err != nil {
			logger.Error().Err(err).Str("severity", severity.String()).Msg("Scheduled sweep failed")
			return
		}
		logger.Debug().
			Str("severity", severity.String()).
			Int("count", result.Selected).
			Bool("coalesced", result.Coalesced).
			Msg("Scheduled sweep finished")
	}
}

// Start runs the schedules until Stop or ctx cancellation
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	logger.Info().Msg("Dispatch scheduler started")
}

// Stop halts the schedules and waits for running sweeps
func (s *Scheduler) Stop() {
	done := s.cron.Stop()
	<-done.Done()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	logger.Info().Msg("Dispatch scheduler stopped")
}

// NextRuns returns the next scheduled sweep per severity
func (s *Scheduler) NextRuns() map[models.Severity]time.Time {
	now := time.Now()
	out := make(map[models.Severity]time.Time, len(s.entries))
	for severity, id := range s.entries {
		entry := s.cron.Entry(id)
		if entry.Schedule == nil {
			continue
		}
		out[severity] = entry.Schedule.Next(now)
	}
	return out
}

// cronLogger adapts cron's logger onto zerolog
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(pairs(keysAndValues)).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(pairs(keysAndValues)).Msg(msg)
}

func pairs(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
