package notifyhub

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewell/filegate/types"
)

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := New()
	// fire and forget: no subscribers, no panic, no error surface
	hub.Publish(types.ProgressEvent{Message: "nobody listening", State: "persisted", Progress: 100})
}

func TestPublishReachesSubscriber(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := New()
	router := gin.New()
	router.GET("/progress-ws", HandleProgressWS(hub))

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/progress-ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// registration races the dial return; give the handler a beat
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.conns)
		hub.mu.RUnlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(types.ProgressEvent{Message: "report.pdf stored", State: "persisted", Progress: 100})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event types.ProgressEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "report.pdf stored", event.Message)
	assert.Equal(t, "persisted", event.State)
	assert.Equal(t, 100, event.Progress)
	assert.Empty(t, event.UserID, "anonymous publication is allowed")
}
