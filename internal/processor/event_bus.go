package processor

import (
	"context"
	"sync"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/models"
)

// AlertEvent represents an alert lifecycle transition
type AlertEvent struct {
	Alert      *models.Alert `json:"alert"`
	Transition Transition    `json:"transition"`
	Timestamp  time.Time     `json:"timestamp"`
}

// AlertObserver interface (Observer Pattern)
type AlertObserver interface {
	OnAlert(ctx context.Context, event *AlertEvent) error
}

// EventPublisher accepts alert lifecycle events
type EventPublisher interface {
	Publish(event *AlertEvent)
}

// EventBus distributes alert events to observers (Pub/Sub pattern)
type EventBus struct {
	observers []AlertObserver
	mu        sync.RWMutex
	eventChan chan *AlertEvent
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

func NewEventBus() *EventBus {
	return &EventBus{
		observers: make([]AlertObserver, 0),
		eventChan: make(chan *AlertEvent, 200),
		stopCh:    make(chan struct{}),
	}
}

// Subscribe adds an observer
func (eb *EventBus) Subscribe(observer AlertObserver) {
	eb.mu.Lock()
	eb.observers = append(eb.observers, observer)
	eb.mu.Unlock()
	logger.Info().Msg("Observer subscribed to event bus")
}

// Publish sends an event to all observers. Never blocks.
func (eb *EventBus) Publish(event *AlertEvent) {
	select {
	case eb.eventChan <- event:
	default:
		logger.Warn().
			Str("device_id", event.Alert.DeviceID).
			Str("transition", string(event.Transition)).
			Msg("Event bus channel full, dropping event")
	}
}

// Start begins processing events
func (eb *EventBus) Start(ctx context.Context) {
	logger.Info().Msg("Starting Alert Event Bus")

	eb.wg.Add(1)
	go eb.dispatcher(ctx)
}

// dispatcher goroutine distributes events to observers
func (eb *EventBus) dispatcher(ctx context.Context) {
	defer eb.wg.Done()

	for {
		select {
		case event := <-eb.eventChan:
			eb.notifyObservers(ctx, event)

		case <-eb.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// notifyObservers sends event to all observers in parallel
func (eb *EventBus) notifyObservers(ctx context.Context, event *AlertEvent) {
	eb.mu.RLock()
	observers := make([]AlertObserver, len(eb.observers))
	copy(observers, eb.observers)
	eb.mu.RUnlock()

	for _, observer := range observers {
		go func(obs AlertObserver) {
			ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := obs.OnAlert(ctx, event); err != nil {
				logger.Error().Err(err).Str("device_id", event.Alert.DeviceID).Msg("Observer notification failed")
			}
		}(observer)
	}
}

func (eb *EventBus) Stop() {
	eb.stopOnce.Do(func() { close(eb.stopCh) })
	eb.wg.Wait()
}
