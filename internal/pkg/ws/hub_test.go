package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// newTestServer 每个连接按 ids 的顺序分配运营 ID
func newTestServer(t *testing.T, hub *Hub, ids ...int64) *httptest.Server {
	t.Helper()

	next := make(chan int64, len(ids))
	for _, id := range ids {
		next <- id
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		client := &Client{OperatorID: <-next, Conn: conn}
		hub.Register(client)
		defer hub.Unregister(client)

		// 读到关闭为止
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, hub.IsOnline(123))
}

func TestHub_SendToOperator_NotOnline(t *testing.T) {
	hub := NewHub()

	err := hub.SendToOperator(123, &Message{Type: "test", Data: map[string]string{"key": "value"}})
	assert.NoError(t, err)
	assert.NoError(t, hub.Broadcast(&Message{Type: "test"}))
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub, 100)
	defer server.Close()

	conn := dial(t, server)

	require.Eventually(t, func() bool { return hub.IsOnline(100) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.ConnectionCount())

	conn.Close()
	assert.Eventually(t, func() bool { return !hub.IsOnline(100) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_SendToOperator(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub, 200)
	defer server.Close()

	conn := dial(t, server)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.IsOnline(200) }, time.Second, 5*time.Millisecond)

	err := hub.SendToOperator(200, &Message{Type: "approved", Data: map[string]int64{"group_id": 1001}})
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, received, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"approved","data":{"group_id":1001}}`, string(received))
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	server := newTestServer(t, hub, 1, 2, 2)
	defer server.Close()

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conns = append(conns, dial(t, server))
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	require.Eventually(t, func() bool { return hub.ConnectionCount() == 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, hub.IsOnline(1))
	assert.True(t, hub.IsOnline(2))

	require.NoError(t, hub.Broadcast(&Message{Type: "expired", Data: nil}))

	for _, c := range conns {
		c.SetReadDeadline(time.Now().Add(time.Second))
		_, received, err := c.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(received), `"type":"expired"`)
	}
}
