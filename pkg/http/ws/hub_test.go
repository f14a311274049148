package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pair opens a real socket and returns the server-side Connection plus
// the client end.
func pair(t *testing.T) (*Connection, *websocket.Conn) {
	t.Helper()
	serverSide := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverSide <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	c := NewConnection(<-serverSide, zerolog.Nop())
	go c.WritePump()
	return c, client
}

func TestHubPublishFansOut(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a, clientA := pair(t)
	b, clientB := pair(t)
	other, _ := pair(t)

	hub.Register("s1", a)
	hub.Register("s1", b)
	hub.Register("s2", other)
	assert.Equal(t, 2, hub.Count("s1"))

	msg, err := NewMessage(TypeQuizState, map[string]int{"index": 1})
	require.NoError(t, err)
	require.NoError(t, hub.Publish("s1", msg))

	for _, client := range []*websocket.Conn{clientA, clientB} {
		require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
		var got Message
		require.NoError(t, client.ReadJSON(&got))
		assert.Equal(t, TypeQuizState, got.Type)
		assert.JSONEq(t, `{"index":1}`, string(got.Payload))
	}

	hub.Unregister("s1", a)
	assert.Equal(t, 1, hub.Count("s1"))
	assert.ErrorIs(t, a.Send(msg), ErrConnectionClosed)

	hub.Unregister("s1", b)
	assert.Equal(t, 0, hub.Count("s1"))
	assert.ErrorIs(t, hub.Publish("s1", msg), ErrNoSubscribers)
}

func TestNewMessageWithoutPayload(t *testing.T) {
	msg, err := NewMessage(TypePong, nil)
	require.NoError(t, err)
	assert.Equal(t, Message{Type: TypePong}, msg)
}
