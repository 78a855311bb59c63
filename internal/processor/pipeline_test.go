package processor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/aqua-monitor/aqua-alert/internal/pool"
	"github.com/aqua-monitor/aqua-alert/internal/processor"
	"github.com/aqua-monitor/aqua-alert/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type rejectingSubmitter struct{}

func (rejectingSubmitter) Submit(task pool.Task) (*pool.Handle, error) {
	return nil, apperr.ErrQueueFull
}

type failingReadingRepo struct {
	repository.ReadingRepo
}

func (failingReadingRepo) Save(ctx context.Context, reading *models.Reading) error {
	return assert.AnError
}

type pipelineFixture struct {
	pipeline  *processor.Pipeline
	devices   *repository.InMemoryDeviceRepo
	readings  *repository.InMemoryReadingRepo
	alerts    *repository.InMemoryAlertRepo
	publisher *recordingPublisher
	predictor *MockPredictor
	pool      *pool.WorkerPool
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	f := &pipelineFixture{
		devices:   repository.NewInMemoryDeviceRepo(),
		readings:  repository.NewInMemoryReadingRepo(),
		alerts:    repository.NewInMemoryAlertRepo(),
		publisher: &recordingPublisher{},
		predictor: new(MockPredictor),
		pool:      pool.NewWorkerPool(2, 10),
	}
	sm, _, _ := newMachine(f.alerts)
	orchestrator := processor.NewOrchestrator(f.predictor, f.publisher, sm)
	f.pipeline = processor.NewPipeline(f.devices, f.readings, f.pool, orchestrator)

	f.pool.Start(context.Background())
	t.Cleanup(f.pool.Stop)
	return f
}

func TestPipeline_HandleReading(t *testing.T) {
	ctx := context.Background()

	t.Run("should persist reading and run prediction asynchronously", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.predictor.On("Predict", mock.Anything, "S1", mock.Anything).
			Return(map[string]models.PredictionOutcome{"S1": okOutcome(30)}, nil)

		reading := &models.Reading{DeviceID: "S1", PH: models.Float(7.0)}
		require.NoError(t, f.pipeline.HandleReading(ctx, reading))

		assert.False(t, reading.MeasuredAt.IsZero())
		assert.NotZero(t, reading.ID)

		device, _ := f.devices.FindByDeviceID(ctx, "S1")
		require.NotNil(t, device)
		assert.Equal(t, "unknown", device.Location)

		assert.Eventually(t, func() bool {
			active, _ := f.alerts.FindActive(ctx, "S1")
			return active != nil && active.Severity == models.SeverityWarning
		}, 2*time.Second, 10*time.Millisecond)
		assert.Eventually(t, func() bool { return len(f.publisher.all()) == 2 }, time.Second, 10*time.Millisecond)
	})

	t.Run("should reject invalid reading without side effects", func(t *testing.T) {
		f := newPipelineFixture(t)

		err := f.pipeline.HandleReading(ctx, &models.Reading{DeviceID: "S1"})
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))

		device, _ := f.devices.FindByDeviceID(ctx, "S1")
		assert.Nil(t, device)
		latest, _ := f.readings.FindLatest(ctx, "S1")
		assert.Nil(t, latest)
		f.predictor.AssertNotCalled(t, "Predict", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("should reject nil reading", func(t *testing.T) {
		f := newPipelineFixture(t)
		assert.True(t, apperr.IsValidation(f.pipeline.HandleReading(ctx, nil)))
	})

	t.Run("should surface persistence errors", func(t *testing.T) {
		f := newPipelineFixture(t)
		sm, _, _ := newMachine(f.alerts)
		p := processor.NewPipeline(f.devices, failingReadingRepo{}, f.pool,
			processor.NewOrchestrator(f.predictor, f.publisher, sm))

		err := p.HandleReading(ctx, &models.Reading{DeviceID: "S1", BOD: models.Float(2)})
		assert.True(t, apperr.IsPersistence(err))
	})

	t.Run("should log and discard pool rejections", func(t *testing.T) {
		f := newPipelineFixture(t)
		sm, _, _ := newMachine(f.alerts)
		p := processor.NewPipeline(f.devices, f.readings, rejectingSubmitter{},
			processor.NewOrchestrator(f.predictor, f.publisher, sm))

		assert.NoError(t, p.HandleReading(ctx, &models.Reading{DeviceID: "S1", COD: models.Float(4)}))
		latest, _ := f.readings.FindLatest(ctx, "S1")
		assert.NotNil(t, latest)
	})

	t.Run("should not wait on slow predictions", func(t *testing.T) {
		f := newPipelineFixture(t)
		release := make(chan struct{})
		f.predictor.On("Predict", mock.Anything, "S1", mock.Anything).
			Run(func(mock.Arguments) { <-release }).
			Return(map[string]models.PredictionOutcome{"S1": okOutcome(80)}, nil)
		defer close(release)

		start := time.Now()
		for i := 0; i < 5; i++ {
			require.NoError(t, f.pipeline.HandleReading(ctx, &models.Reading{DeviceID: "S1", PH: models.Float(7)}))
		}
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("should keep one unresolved alert under concurrent readings", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.predictor.On("Predict", mock.Anything, "S1", mock.Anything).
			Return(map[string]models.PredictionOutcome{"S1": okOutcome(15)}, nil)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = f.pipeline.HandleReading(ctx, &models.Reading{DeviceID: "S1", DO: models.Float(2)})
			}()
		}
		wg.Wait()

		assert.Eventually(t, func() bool {
			return f.pool.Stats().Completed+f.pool.Stats().Failed+f.pool.Stats().Rejected >= 8
		}, 2*time.Second, 10*time.Millisecond)

		unresolved, _ := f.alerts.FindUnresolved(ctx)
		assert.Len(t, unresolved, 1)
	})
}
