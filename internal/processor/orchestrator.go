package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/aqua-monitor/aqua-alert/internal/prediction"
)

// RealtimePublisher pushes a message to a named topic
type RealtimePublisher interface {
	Publish(topic string, message interface{})
}

// Orchestrator runs one prediction for a reading and routes the outcome
type Orchestrator struct {
	predictor prediction.Predictor
	publisher RealtimePublisher
	machine   *AlertStateMachine
	now       func() time.Time
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(predictor prediction.Predictor, publisher RealtimePublisher, machine *AlertStateMachine) *Orchestrator {
	return &Orchestrator{
		predictor: predictor,
		publisher: publisher,
		machine:   machine,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Process predicts the reading and publishes exactly one realtime result.
// Only a successful prediction reaches the state machine.
func (o *Orchestrator) Process(ctx context.Context, reading *models.Reading, device *models.Device) error {
	grouping := device.Grouping()
	log := logger.WithContext("device_id", reading.DeviceID)

	outcome, err := o.predict(ctx, grouping, reading)
	if err != nil {
		log.Warn().Err(err).Str("grouping", grouping).Msg("Prediction failed")
		o.publish(reading.DeviceID, models.NewPredictionFailure(reading.DeviceID, err.Error(), o.now()))
		return err
	}

	msg := models.NewPredictionSuccess(device, grouping, reading, outcome, o.now())
	o.publish(reading.DeviceID, msg)

	transition, err := o.machine.ApplyOutcome(ctx, reading.DeviceID, outcome, reading)
	if err != nil {
		log.Error().Err(err).Msg("Failed to apply alert transition")
		return err
	}

	log.Debug().
		Str("grouping", grouping).
		Str("alert_level", msg.PredictionSummary.AlertLevel).
		Str("transition", string(transition)).
		Msg("Reading processed")
	return nil
}

func (o *Orchestrator) predict(ctx context.Context, grouping string, reading *models.Reading) (models.PredictionOutcome, error) {
	result, err := o.predictor.Predict(ctx, grouping, []prediction.ReadingPoint{prediction.PointFromReading(reading)})
	if err != nil {
		return models.PredictionOutcome{}, err
	}

	outcome, ok := result[grouping]
	switch {
	case !ok:
		return models.PredictionOutcome{}, apperr.NewPredictionError("evaluate", fmt.Errorf("no result for grouping %q", grouping))
	case !outcome.IsOk():
		return models.PredictionOutcome{}, apperr.NewPredictionError("evaluate", fmt.Errorf("%s", outcome.Err()))
	case len(outcome.Points()) == 0:
		return models.PredictionOutcome{}, apperr.NewPredictionError("evaluate", fmt.Errorf("empty prediction list for grouping %q", grouping))
	}
	return outcome, nil
}

func (o *Orchestrator) publish(deviceID string, msg *models.PredictionResultMessage) {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(models.TopicPrediction, msg)
	o.publisher.Publish(models.DeviceTopic(deviceID), msg)
}
