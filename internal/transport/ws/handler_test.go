package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeni-bff/internal/application/realtime"
	"github.com/zeni-bff/internal/domain"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readFrame(t *testing.T, c *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, c.ReadJSON(&f))
	return f
}

func newServer(t *testing.T) (*httptest.Server, *realtime.Registry) {
	t.Helper()
	reg := realtime.NewRegistry()
	mux := http.NewServeMux()
	mux.Handle("/ws", NewHandler(reg, []string{"*"}, time.Second))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, reg
}

func TestHandler_WelcomeCarriesUser(t *testing.T) {
	srv, _ := newServer(t)
	c := dial(t, srv, "?userId=u1")

	f := readFrame(t, c)
	assert.Equal(t, domain.LiveWelcome, f.Type)
	var p realtime.WelcomePayload
	require.NoError(t, json.Unmarshal(f.Payload, &p))
	assert.Equal(t, "u1", p.UserID)
	assert.NotEmpty(t, p.ClientID)
}

func TestHandler_AnonymousWelcomeKeepsUserField(t *testing.T) {
	srv, _ := newServer(t)
	c := dial(t, srv, "")

	f := readFrame(t, c)
	assert.Equal(t, domain.LiveWelcome, f.Type)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(f.Payload, &raw))
	require.Contains(t, raw, "userId")
	assert.Equal(t, "", raw["userId"])
	assert.NotEmpty(t, raw["clientId"])
}

func TestHandler_RegisterThenReceive(t *testing.T) {
	srv, reg := newServer(t)
	c := dial(t, srv, "")
	readFrame(t, c)

	require.NoError(t, c.WriteJSON(map[string]string{"type": "register", "userId": "u7"}))
	f := readFrame(t, c)
	assert.Equal(t, domain.LiveRegistered, f.Type)

	n := reg.Broadcast(domain.LiveMessage{Type: domain.LiveNotification, Payload: map[string]string{"id": "n1"}}, []string{"u7"})
	assert.Equal(t, 1, n)

	f = readFrame(t, c)
	assert.Equal(t, domain.LiveNotification, f.Type)
	assert.JSONEq(t, `{"id":"n1"}`, string(f.Payload))
}

func TestHandler_DisconnectRemovesClient(t *testing.T) {
	srv, reg := newServer(t)
	c := dial(t, srv, "?userId=u1")
	readFrame(t, c)
	require.Equal(t, 1, reg.Count())

	require.NoError(t, c.Close())
	assert.Eventually(t, func() bool { return reg.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://admin.example"})
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(r))
	r.Header.Set("Origin", "https://admin.example")
	assert.True(t, check(r))
	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(r))
	assert.True(t, originChecker([]string{"*"})(r))
}
