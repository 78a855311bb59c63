package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/config"
	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	pmqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReadingHandler is the pipeline entry point fed by the adapter
type ReadingHandler interface {
	HandleReading(ctx context.Context, reading *models.Reading) error
}

// Subscriber consumes telemetry from an MQTT topic
type Subscriber struct {
	topic   string
	qos     byte
	handler ReadingHandler
	logger  zerolog.Logger
	opt     *pmqtt.ClientOptions
	client  pmqtt.Client
	ctx     context.Context
}

func NewSubscriber(cfg config.MQTTConfig, handler ReadingHandler) *Subscriber {
	l := logger.Component("mqtt")
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "aqua-alert-" + uuid.NewString()
	}

	s := &Subscriber{
		topic:   cfg.Topic,
		qos:     byte(cfg.QoS),
		handler: handler,
		logger:  l,
		ctx:     context.Background(),
	}
	s.opt = pmqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(ConnectLostHandler(l)).
		SetOnConnectHandler(s.onConnect)
	return s
}

// Start connects and subscribes. Subscriptions are renewed on every reconnect.
func (s *Subscriber) Start(ctx context.Context) error {
	s.ctx = ctx
	s.client = pmqtt.NewClient(s.opt)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		s.logger.Error().Err(token.Error()).Msg("Error connecting to mqtt broker")
		return errors.Join(token.Error(), errors.New("error connecting to mqtt broker"))
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop disconnects from the broker
func (s *Subscriber) Stop() {
	if s.client == nil || !s.client.IsConnected() {
		return
	}
	s.client.Disconnect(250)
	s.logger.Warn().Msg("Mqtt disconnect")
}

func (s *Subscriber) onConnect(client pmqtt.Client) {
	s.logger.Info().Str("topic", s.topic).Msg("Connected to mqtt broker")
	token := client.Subscribe(s.topic, s.qos, s.onMessage)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		s.logger.Error().Err(token.Error()).Str("topic", s.topic).Msg("Failed to subscribe")
	}
}

func (s *Subscriber) onMessage(_ pmqtt.Client, msg pmqtt.Message) {
	s.handleMessage(s.ctx, msg.Topic(), msg.Payload())
}

func (s *Subscriber) handleMessage(ctx context.Context, topic string, payload []byte) {
	reading, err := DecodePayload(payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("Dropping undecodable telemetry")
		return
	}

	if err := s.handler.HandleReading(ctx, reading); err != nil {
		ev := s.logger.Error()
		if apperr.IsValidation(err) {
			ev = s.logger.Warn()
		}
		ev.Err(err).Str("topic", topic).Str("device_id", reading.DeviceID).Msg("Reading not accepted")
	}
}

func ConnectLostHandler(logger zerolog.Logger) func(client pmqtt.Client, err error) {
	return func(client pmqtt.Client, err error) {
		logger.Warn().Err(err).Msg("Connection Lost")
	}
}
