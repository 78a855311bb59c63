package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/aqua-monitor/aqua-alert/internal/notifier"
	"github.com/aqua-monitor/aqua-alert/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Severities swept by the engine
var Severities = []models.Severity{models.SeverityWarning, models.SeverityCritical}

// SweepResult summarizes one Dispatch call
type SweepResult struct {
	Severity  models.Severity `json:"severity"`
	Selected  int             `json:"selected"`
	Marked    int64           `json:"marked"`
	Sweeps    int             `json:"sweeps"`
	Coalesced bool            `json:"coalesced"`
	SentAt    *time.Time      `json:"sentAt,omitempty"`
}

// flight tracks the single in-progress sweep of a severity
type flight struct {
	running bool
	pending bool
}

// Engine runs batched notification sweeps, one at a time per severity.
// A Dispatch that arrives while a sweep runs is coalesced: the running
// sweep repeats once after finishing so alerts created meanwhile are sent.
type Engine struct {
	alerts    repository.AlertRepo
	devices   repository.DeviceRepo
	readings  repository.ReadingRepo
	sender    notifier.Sender
	renderer  *Renderer
	recipient string
	now       func() time.Time

	mu      sync.Mutex
	flights map[models.Severity]*flight
}

func NewEngine(alerts repository.AlertRepo, devices repository.DeviceRepo, readings repository.ReadingRepo,
	sender notifier.Sender, renderer *Renderer, recipient string) *Engine {
	flights := make(map[models.Severity]*flight, len(Severities))
	for _, s := range Severities {
		flights[s] = &flight{}
	}
	return &Engine{
		alerts:    alerts,
		devices:   devices,
		readings:  readings,
		sender:    sender,
		renderer:  renderer,
		recipient: recipient,
		now:       func() time.Time { return time.Now().UTC() },
		flights:   flights,
	}
}

// Dispatch sweeps one severity. Errors abort only this severity's sweep and
// leave every selected alert eligible for the next one.
func (e *Engine) Dispatch(ctx context.Context, severity models.Severity) (SweepResult, error) {
	result := SweepResult{Severity: severity}

	f, ok := e.flights[severity]
	if !ok {
		return result, fmt.Errorf("unsupported dispatch severity %q", severity)
	}

	e.mu.Lock()
	if f.running {
		f.pending = true
		e.mu.Unlock()
		result.Coalesced = true
		logger.Debug().Str("severity", severity.String()).Msg("Sweep already running, trigger coalesced")
		return result, nil
	}
	f.running = true
	e.mu.Unlock()

	for {
		selected, marked, sentAt, err := e.sweep(ctx, severity)
		result.Sweeps++
		result.Selected += selected
		result.Marked += marked
		if sentAt != nil {
			result.SentAt = sentAt
		}

		e.mu.Lock()
		// a trigger coalesced into a failed sweep still gets its re-run
		if f.pending && ctx.Err() == nil {
			f.pending = false
			e.mu.Unlock()
			continue
		}
		f.running = false
		f.pending = false
		e.mu.Unlock()

		return result, err
	}
}

// TriggerCritical runs an immediate CRITICAL sweep
func (e *Engine) TriggerCritical(ctx context.Context) {
	result, err := e.Dispatch(ctx, models.SeverityCritical)
	if err != nil {
		logger.Error().Err(err).Msg("Immediate critical dispatch failed")
		return
	}
	logger.Debug().
		Int("count", result.Selected).
		Bool("coalesced", result.Coalesced).
		Msg("Immediate critical dispatch finished")
}

// DispatchAll sweeps every severity concurrently
func (e *Engine) DispatchAll(ctx context.Context) (map[models.Severity]SweepResult, error) {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make(map[models.Severity]SweepResult, len(Severities))
	)

	for _, severity := range Severities {
		severity := severity
		g.Go(func() error {
			res, err := e.Dispatch(ctx, severity)
			mu.Lock()
			results[severity] = res
			mu.Unlock()
			return err
		})
	}

	err := g.Wait()
	return results, err
}

func (e *Engine) sweep(ctx context.Context, severity models.Severity) (int, int64, *time.Time, error) {
	log := logger.WithContext("severity", severity.String())

	alerts, err := e.alerts.FindUndispatched(ctx, severity)
	if err != nil {
		log.Error().Err(err).Msg("Failed to select undispatched alerts")
		return 0, 0, nil, err
	}
	if len(alerts) == 0 {
		return 0, 0, nil, nil
	}

	sections, err := e.loadSections(ctx, alerts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load notification context")
		return len(alerts), 0, nil, err
	}

	subject, body, err := e.renderer.Render(severity, sections, e.now())
	if err != nil {
		return len(alerts), 0, nil, err
	}

	if err := e.sender.Send(ctx, e.recipient, subject, body); err != nil {
		if !apperr.IsNotification(err) {
			err = apperr.NewNotificationError(e.recipient, err)
		}
		log.Error().Err(err).Int("count", len(alerts)).Msg("Notification send failed, alerts stay eligible")
		return len(alerts), 0, nil, err
	}

	sentAt := e.now()
	marked, err := e.alerts.MarkDispatched(ctx, repository.RefsOf(alerts), sentAt)
	if err != nil {
		log.Error().Err(err).Int("count", len(alerts)).Msg("Notification sent but alerts not marked")
		return len(alerts), 0, nil, err
	}
	if marked < int64(len(alerts)) {
		log.Warn().
			Int("count", len(alerts)).
			Int64("marked", marked).
			Msg("Some alerts changed during the sweep and stay eligible")
	}

	log.Info().Int("count", len(alerts)).Int64("marked", marked).Msg("Batch notification dispatched")
	return len(alerts), marked, &sentAt, nil
}

// loadSections fetches devices and readings for all alerts up front
func (e *Engine) loadSections(ctx context.Context, alerts []*models.Alert) ([]Section, error) {
	deviceIDs := make([]string, 0, len(alerts))
	readingIDs := make([]uint, 0, len(alerts))
	for _, a := range alerts {
		deviceIDs = append(deviceIDs, a.DeviceID)
		if a.ReadingID != nil {
			readingIDs = append(readingIDs, *a.ReadingID)
		}
	}

	devices, err := e.devices.FindByDeviceIDs(ctx, deviceIDs)
	if err != nil {
		return nil, err
	}
	readings, err := e.readings.FindByIDs(ctx, readingIDs)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]*models.Reading)
	sections := make([]Section, 0, len(alerts))
	for _, a := range alerts {
		var reading *models.Reading
		if a.ReadingID != nil {
			reading = readings[*a.ReadingID]
		}
		if reading == nil {
			cached, seen := latest[a.DeviceID]
			if !seen {
				cached, err = e.readings.FindLatest(ctx, a.DeviceID)
				if err != nil {
					return nil, err
				}
				latest[a.DeviceID] = cached
			}
			reading = cached
		}
		sections = append(sections, Section{Alert: a, Device: devices[a.DeviceID], Reading: reading})
	}
	return sections, nil
}
