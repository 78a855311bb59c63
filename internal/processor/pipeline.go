package processor

import (
	"context"
	"errors"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/aqua-monitor/aqua-alert/internal/pool"
	"github.com/aqua-monitor/aqua-alert/internal/repository"
)

// TaskSubmitter accepts prediction tasks without blocking
type TaskSubmitter interface {
	Submit(task pool.Task) (*pool.Handle, error)
}

// Pipeline is the ingestion entry point: validate, persist, hand off.
// It never waits on the prediction call.
type Pipeline struct {
	devices      repository.DeviceRepo
	readings     repository.ReadingRepo
	submitter    TaskSubmitter
	orchestrator *Orchestrator
	now          func() time.Time
}

func NewPipeline(devices repository.DeviceRepo, readings repository.ReadingRepo, submitter TaskSubmitter, orchestrator *Orchestrator) *Pipeline {
	return &Pipeline{
		devices:      devices,
		readings:     readings,
		submitter:    submitter,
		orchestrator: orchestrator,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// HandleReading accepts one reading. Returns ValidationError for malformed
// input and PersistenceError when the reading could not be stored. Pool
// rejections are logged and discarded.
func (p *Pipeline) HandleReading(ctx context.Context, reading *models.Reading) error {
	if reading == nil {
		return apperr.NewValidationError("", "reading is required")
	}
	if err := reading.Validate(); err != nil {
		logger.Warn().Err(err).Str("device_id", reading.DeviceID).Msg("Dropping invalid reading")
		return err
	}
	if reading.MeasuredAt.IsZero() {
		reading.MeasuredAt = p.now()
	}

	device, err := p.devices.FindOrCreate(ctx, reading.DeviceID)
	if err != nil {
		logger.Error().Err(err).Str("device_id", reading.DeviceID).Msg("Failed to resolve device")
		return apperr.NewPersistenceError("find device", err)
	}
	if err := p.readings.Save(ctx, reading); err != nil {
		logger.Error().Err(err).Str("device_id", reading.DeviceID).Msg("Failed to save reading")
		return apperr.NewPersistenceError("save reading", err)
	}

	handle, err := p.submitter.Submit(func(ctx context.Context) error {
		return p.orchestrator.Process(ctx, reading, device)
	})
	if err != nil {
		logger.Warn().Err(err).Str("device_id", reading.DeviceID).Msg("Prediction task rejected")
		return nil
	}

	go observe(reading.DeviceID, handle)
	return nil
}

func observe(deviceID string, handle *pool.Handle) {
	<-handle.Done()
	err := handle.Err()
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrTaskDropped):
		logger.Warn().Str("device_id", deviceID).Msg("Prediction task dropped at shutdown")
	case apperr.IsPrediction(err):
		// already logged and published as a failure message
	default:
		logger.Error().Err(err).Str("device_id", deviceID).Msg("Prediction task failed")
	}
}
