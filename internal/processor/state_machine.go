package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/aqua-monitor/aqua-alert/internal/repository"
)

// Transition is the action the state machine took for one prediction
type Transition string

const (
	TransitionNone      Transition = "NONE"
	TransitionCreated   Transition = "CREATED"
	TransitionEscalated Transition = "ESCALATED"
	TransitionResolved  Transition = "RESOLVED"
)

const maxApplyAttempts = 3

// CriticalTrigger runs an out-of-band CRITICAL dispatch
type CriticalTrigger interface {
	TriggerCritical(ctx context.Context)
}

// change is one severity observation for a device
type change struct {
	severity models.Severity
	label    string
	score    float64
	forecast []models.PredictionPoint
	reading  *models.Reading
}

// AlertStateMachine turns derived severities into alert transitions.
// All read-modify-write cycles for one device run under that device's lock.
type AlertStateMachine struct {
	alertRepo repository.AlertRepo
	events    EventPublisher
	trigger   CriticalTrigger
	locks     *deviceLocks
	now       func() time.Time
}

// NewAlertStateMachine creates a state machine. events and trigger may be nil.
func NewAlertStateMachine(alertRepo repository.AlertRepo, events EventPublisher) *AlertStateMachine {
	return &AlertStateMachine{
		alertRepo: alertRepo,
		events:    events,
		locks:     newDeviceLocks(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetCriticalTrigger wires the immediate CRITICAL dispatch path
func (sm *AlertStateMachine) SetCriticalTrigger(trigger CriticalTrigger) {
	sm.trigger = trigger
}

// Apply updates the device's alert for a severity observation
func (sm *AlertStateMachine) Apply(ctx context.Context, deviceID string, severity models.Severity, label string, reading *models.Reading) (Transition, error) {
	return sm.apply(ctx, deviceID, change{severity: severity, label: label, reading: reading})
}

// ApplyOutcome derives severity, label and score from a successful outcome and applies them
func (sm *AlertStateMachine) ApplyOutcome(ctx context.Context, deviceID string, outcome models.PredictionOutcome, reading *models.Reading) (Transition, error) {
	latest, ok := outcome.Latest()
	if !ok {
		return TransitionNone, apperr.NewPredictionError("evaluate", fmt.Errorf("outcome has no predictions"))
	}
	severity := models.SeverityFromScore(latest.Score)
	return sm.apply(ctx, deviceID, change{
		severity: severity,
		label:    severity.Label(),
		score:    latest.Score,
		forecast: outcome.Points(),
		reading:  reading,
	})
}

func (sm *AlertStateMachine) apply(ctx context.Context, deviceID string, c change) (Transition, error) {
	if deviceID == "" {
		return TransitionNone, apperr.NewValidationError("deviceId", "is required")
	}

	var (
		transition Transition
		alert      *models.Alert
		err        error
	)

	release := sm.locks.Lock(deviceID)
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		transition, alert, err = sm.step(ctx, deviceID, c)
		if !errors.Is(err, apperr.ErrStaleAlert) && !errors.Is(err, repository.ErrActiveAlertExists) {
			break
		}
		logger.Debug().
			Str("device_id", deviceID).
			Int("attempt", attempt).
			Msg("Alert changed concurrently, retrying transition")
	}
	release()

	if err != nil {
		return TransitionNone, err
	}
	if transition == TransitionNone {
		return transition, nil
	}

	logger.Info().
		Str("device_id", deviceID).
		Str("alert_id", alert.ID.String()).
		Str("transition", string(transition)).
		Str("severity", alert.Severity.String()).
		Float64("score", c.score).
		Msg("Alert state changed")

	if sm.events != nil {
		sm.events.Publish(&AlertEvent{Alert: alert, Transition: transition, Timestamp: sm.now()})
	}

	if sm.trigger != nil && alert.Severity == models.SeverityCritical &&
		(transition == TransitionCreated || transition == TransitionEscalated) {
		sm.trigger.TriggerCritical(ctx)
	}

	return transition, nil
}

// step runs one read-modify-write cycle of the transition table
func (sm *AlertStateMachine) step(ctx context.Context, deviceID string, c change) (Transition, *models.Alert, error) {
	active, err := sm.alertRepo.FindActive(ctx, deviceID)
	if err != nil {
		return TransitionNone, nil, err
	}

	now := sm.now()
	var readingID *uint
	if c.reading != nil && c.reading.ID != 0 {
		id := c.reading.ID
		readingID = &id
	}

	switch {
	case active == nil && !c.severity.IsAbnormal():
		return TransitionNone, nil, nil

	case active == nil:
		alert := models.NewAlert(deviceID, c.severity, c.label, c.score, readingID, now)
		alert.SetForecast(c.forecast)
		if err := sm.alertRepo.Create(ctx, alert); err != nil {
			return TransitionNone, nil, err
		}
		return TransitionCreated, alert, nil

	case !c.severity.IsAbnormal():
		active.Resolve(now)
		if err := sm.alertRepo.Update(ctx, active); err != nil {
			return TransitionNone, nil, err
		}
		return TransitionResolved, active, nil

	case c.severity.Rank() > active.Severity.Rank():
		active.Escalate(c.severity, c.label, c.score, readingID, now)
		active.SetForecast(c.forecast)
		if err := sm.alertRepo.Update(ctx, active); err != nil {
			return TransitionNone, nil, err
		}
		return TransitionEscalated, active, nil

	default:
		// same severity, or CRITICAL seeing WARNING: severity never drops without resolving
		return TransitionNone, nil, nil
	}
}
