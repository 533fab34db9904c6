package ha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicoll/dash480-integration/internal/pkg/config"
)

// fakeHost speaks just enough of the websocket handshake to let a client
// authenticate, then hands the connection to the scenario.
func fakeHost(t *testing.T, scenario func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]string{"type": "auth_required"})
		var auth map[string]any
		if err := conn.ReadJSON(&auth); err != nil {
			return
		}
		scenario(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectFailsFastWhenConnectionDrops(t *testing.T) {
	url := fakeHost(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]string{"type": "auth_ok"})
		// drop the connection instead of answering the first command
		_, _, _ = conn.ReadMessage()
	})

	c := New(&config.HAConfig{URL: url, Token: "token"}, make(chan error, 8))

	done := make(chan error, 1)
	go func() {
		done <- c.Connect(context.Background())
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection lost")
	case <-time.After(2 * time.Second):
		t.Fatal("Connect did not return after the connection dropped")
	}
}

func TestConnectRejectsBadToken(t *testing.T) {
	url := fakeHost(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]string{"type": "auth_invalid", "message": "bad token"})
	})

	c := New(&config.HAConfig{URL: url, Token: "wrong"}, make(chan error, 8))
	err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestRequestHonoursContextCancellation(t *testing.T) {
	release := make(chan struct{})
	url := fakeHost(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]string{"type": "auth_ok"})
		// never answer; hold the connection open until the test finishes
		<-release
	})
	defer close(release)

	c := New(&config.HAConfig{URL: url, Token: "token"}, make(chan error, 8))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := c.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the abandoned request no longer occupies the pending table
	c.mu.Lock()
	pending := len(c.pending)
	c.mu.Unlock()
	assert.Zero(t, pending)
}
