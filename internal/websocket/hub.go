package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/logger"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/aqua-monitor/aqua-alert/internal/processor"
	"github.com/gorilla/websocket"
)

// Message types
const (
	TypePrediction = "prediction"
	TypeAlert      = "alert"
	TypePong       = "pong"
	TypeSubscribed = "subscribed"
)

// Message sent over WebSocket
type Message struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// clientRequest is a control message sent by a client
type clientRequest struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// DefaultTopics are subscribed when a client names none
var DefaultTopics = []string{models.TopicPrediction, models.TopicAlerts}

// Client represents a WebSocket client with write synchronization
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	hub     *Hub

	subMu  sync.RWMutex
	topics map[string]bool
}

func newClient(conn *websocket.Conn, hub *Hub, topics []string) *Client {
	c := &Client{conn: conn, hub: hub, topics: make(map[string]bool)}
	for _, t := range topics {
		c.Subscribe(t)
	}
	return c
}

// WriteJSON safely writes JSON to the WebSocket connection
func (c *Client) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(v)
}

// WriteControl safely writes control message to the WebSocket connection
func (c *Client) WriteControl(messageType int, data []byte, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(messageType, data, deadline)
}

func (c *Client) Subscribe(topic string) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}
	c.subMu.Lock()
	c.topics[topic] = true
	c.subMu.Unlock()
}

func (c *Client) Unsubscribe(topic string) {
	c.subMu.Lock()
	delete(c.topics, strings.TrimSpace(topic))
	c.subMu.Unlock()
}

// Subscribed reports whether the client listens on topic
func (c *Client) Subscribed(topic string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return c.topics[topic]
}

// Hub manages WebSocket connections and routes messages by topic
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *Message, 500),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // same-origin and non-browser clients
		}
		return set["*"] || set[strings.TrimRight(origin, "/")]
	}
}

// Run starts the hub goroutine
func (h *Hub) Run(ctx context.Context) {
	logger.Info().Msg("Starting WebSocket Hub")
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Info().Msg("WebSocket client registered")

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.mu.RLock()
			// copy to avoid holding the lock during writes
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				if client.Subscribed(message.Topic) {
					clients = append(clients, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range clients {
				if err := client.WriteJSON(message); err != nil {
					logger.Error().Err(err).Str("topic", message.Topic).Msg("WebSocket write failed")
					h.remove(client)
				}
			}

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.conn.Close()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.conn.Close()
		logger.Info().Msg("WebSocket client unregistered")
	}
}

// Register adds a client
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.conn.Close()
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for its topic's subscribers
func (h *Hub) Broadcast(msg *Message) {
	select {
	case h.broadcast <- msg:
	default:
		logger.Warn().Str("topic", msg.Topic).Msg("Broadcast channel full")
	}
}

// Publish marshals message and broadcasts it on topic
func (h *Hub) Publish(topic string, message interface{}) {
	payload, err := json.Marshal(message)
	if err != nil {
		logger.Error().Err(err).Str("topic", topic).Msg("Failed to marshal realtime message")
		return
	}
	msgType := TypePrediction
	if topic == models.TopicAlerts {
		msgType = TypeAlert
	}
	h.Broadcast(&Message{
		Type:      msgType,
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}

// OnAlert implements AlertObserver interface
func (h *Hub) OnAlert(ctx context.Context, event *processor.AlertEvent) error {
	h.Publish(models.TopicAlerts, event)
	return nil
}

// requestedTopics reads ?topics=a,b and ?deviceId=x from the upgrade request
func requestedTopics(r *http.Request) []string {
	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	if id := strings.TrimSpace(r.URL.Query().Get("deviceId")); id != "" {
		topics = append(topics, models.DeviceTopic(id))
	}
	if len(topics) == 0 {
		return DefaultTopics
	}
	return topics
}

// ServeWS handles WebSocket connections (goroutine per connection)
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := newClient(conn, h, requestedTopics(r))

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	h.Register(client)

	go h.readLoop(client)
	go h.pingLoop(client)
}

func (h *Hub) readLoop(client *Client) {
	defer h.Unregister(client)

	for {
		var req clientRequest
		if err := client.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket unexpected close")
			}
			return
		}
		client.conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var reply *Message
		switch req.Type {
		case "ping":
			reply = &Message{Type: TypePong, Payload: json.RawMessage(`{}`), Timestamp: time.Now().UTC()}
		case "subscribe":
			client.Subscribe(req.Topic)
			reply = &Message{Type: TypeSubscribed, Topic: req.Topic, Payload: json.RawMessage(`{}`), Timestamp: time.Now().UTC()}
		case "unsubscribe":
			client.Unsubscribe(req.Topic)
		}

		if reply != nil {
			if err := client.WriteJSON(reply); err != nil {
				logger.Error().Err(err).Msg("Failed to reply to WebSocket client")
				return
			}
		}
	}
}

func (h *Hub) pingLoop(client *Client) {
	ticker := time.NewTicker(45 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.RLock()
		_, exists := h.clients[client]
		h.mu.RUnlock()

		if !exists {
			return
		}

		if err := client.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
			logger.Error().Err(err).Msg("Failed to send ping")
			return
		}
	}
}
