package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, userID uint) (*KioskHub, *websocket.Conn) {
	t.Helper()
	hub := NewKioskHub(nil, []string{"https://quiz.example.com"})
	go hub.Run()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, userID)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.IsConnected(userID) }, 2*time.Second, 10*time.Millisecond)
	return hub, conn
}

func TestKioskHubPush(t *testing.T) {
	hub, conn := startHub(t, 7)

	hub.PushToUsers([]uint{7, 8}, WSMessage{Type: MsgForceSubmitted, Data: map[string]string{"sessionId": "s-1"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, MsgForceSubmitted, msg.Type)
	assert.Equal(t, "s-1", msg.Data["sessionId"])
	assert.False(t, hub.IsConnected(8))
}

func TestKioskHubBlurEvent(t *testing.T) {
	hub, conn := startHub(t, 7)

	var mu sync.Mutex
	var got []string
	hub.SetBlurHandler(func(userID uint, sessionID string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, sessionID)
		assert.Equal(t, uint(7), userID)
	})

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"PING"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"WINDOW_BLURRED","data":{}}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"WINDOW_BLURRED","data":{"sessionId":"abc"}}`)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "abc"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestKioskHubDisconnect(t *testing.T) {
	hub, conn := startHub(t, 9)
	conn.Close()
	require.Eventually(t, func() bool { return !hub.IsConnected(9) }, 2*time.Second, 10*time.Millisecond)
}

func TestKioskHubCheckOrigin(t *testing.T) {
	hub := NewKioskHub(nil, []string{"https://quiz.example.com/"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "https://quiz.example.com")
	assert.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, hub.checkOrigin(req))
}
