package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/api/handlers"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/aqua-monitor/aqua-alert/internal/websocket"
	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWSServer(t *testing.T) (*websocket.Hub, *httptest.Server) {
	hub := websocket.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers.RegisterWebSocketRoutes(router, hub)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return hub, server
}

func wsURL(server *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
}

func waitForClients(t *testing.T, hub *websocket.Hub, n int) {
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestNewWebSocketHandler(t *testing.T) {
	t.Run("should create websocket handler successfully", func(t *testing.T) {
		handler := handlers.NewWebSocketHandler(websocket.NewHub(nil))
		assert.NotNil(t, handler)
	})
}

func TestRegisterWebSocketRoutes(t *testing.T) {
	t.Run("should register routes successfully", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		router := gin.New()

		handlers.RegisterWebSocketRoutes(router, websocket.NewHub(nil))

		registered := map[string]bool{}
		for _, route := range router.Routes() {
			registered[route.Method+" "+route.Path] = true
		}
		assert.True(t, registered["GET /ws"], "Expected /ws route to be registered")
		assert.True(t, registered["GET /api/ws/clients"])
	})
}

func TestWebSocketHandler_HandleWebSocket(t *testing.T) {
	t.Run("should upgrade and count clients", func(t *testing.T) {
		hub, server := startWSServer(t)

		conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(server, ""), nil)
		require.NoError(t, err)
		defer conn.Close()

		waitForClients(t, hub, 1)

		resp, err := http.Get(server.URL + "/api/ws/clients")
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]int
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 1, body["clients"])
	})

	t.Run("should deliver device topic to device subscriber", func(t *testing.T) {
		hub, server := startWSServer(t)

		conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(server, "?deviceId=S9"), nil)
		require.NoError(t, err)
		defer conn.Close()
		waitForClients(t, hub, 1)

		hub.Publish(models.TopicPrediction, map[string]string{"deviceId": "other"})
		hub.Publish(models.DeviceTopic("S9"), map[string]string{"deviceId": "S9"})

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var received websocket.Message
		require.NoError(t, conn.ReadJSON(&received))
		assert.Equal(t, models.DeviceTopic("S9"), received.Topic)
		assert.Equal(t, websocket.TypePrediction, received.Type)
		assert.JSONEq(t, `{"deviceId":"S9"}`, string(received.Payload))
	})

	t.Run("should unregister on disconnect", func(t *testing.T) {
		hub, server := startWSServer(t)

		conn, _, err := gorillaws.DefaultDialer.Dial(wsURL(server, ""), nil)
		require.NoError(t, err)
		waitForClients(t, hub, 1)

		conn.Close()
		waitForClients(t, hub, 0)
	})
}

func TestWebSocketHandler_ErrorCases(t *testing.T) {
	t.Run("should handle invalid upgrade requests", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		handlers.RegisterWebSocketRoutes(router, websocket.NewHub(nil))

		req, _ := http.NewRequest("GET", "/ws", nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("should reject disallowed origin", func(t *testing.T) {
		hub := websocket.NewHub([]string{"https://dashboard.example"})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go hub.Run(ctx)

		gin.SetMode(gin.TestMode)
		router := gin.New()
		handlers.RegisterWebSocketRoutes(router, hub)
		server := httptest.NewServer(router)
		defer server.Close()

		header := http.Header{"Origin": []string{"https://evil.example"}}
		_, resp, err := gorillaws.DefaultDialer.Dial(wsURL(server, ""), header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
