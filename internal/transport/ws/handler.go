package ws

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"github.com/zeni-bff/internal/application/realtime"
	"github.com/zeni-bff/internal/domain"
)

const maxMessageSize = 4096

// Handler upgrades GET /ws to the realtime channel. Clients may pass ?userId=
// on connect or send {"type":"register","userId":…} later.
type Handler struct {
	registry     *realtime.Registry
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

func NewHandler(registry *realtime.Registry, allowedOrigins []string, pingInterval time.Duration) *Handler {
	if pingInterval <= 0 {
		pingInterval = 25 * time.Second
	}
	return &Handler{
		registry:     registry,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || lo.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || lo.Contains(allowed, origin)
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Warn("websocket upgrade failed", "err", err)
		return
	}
	c := newConn(wsConn)
	client, err := h.registry.Connect(c, strings.TrimSpace(r.URL.Query().Get("userId")))
	if err != nil {
		slog.Warn("live client rejected", "err", err)
		return
	}
	defer h.registry.Disconnect(client.ID)

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(c, done)

	h.readLoop(wsConn, client.ID, c)
}

// readLoop blocks until the peer goes away or stops answering pings.
func (h *Handler) readLoop(wsConn *websocket.Conn, clientID string, c *conn) {
	idle := 2 * h.pingInterval
	wsConn.SetReadLimit(maxMessageSize)
	_ = wsConn.SetReadDeadline(time.Now().Add(idle))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		var in domain.LiveMessage
		if err := wsConn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("live client read ended", "client", clientID, "err", err)
			}
			return
		}
		_ = wsConn.SetReadDeadline(time.Now().Add(idle))

		if in.Type != domain.LiveRegister {
			continue
		}
		userID := strings.TrimSpace(in.UserID)
		if userID == "" || !h.registry.Register(clientID, userID) {
			continue
		}
		_ = c.Send(domain.LiveMessage{
			Type:    domain.LiveRegistered,
			Payload: realtime.WelcomePayload{ClientID: clientID, UserID: userID},
		})
	}
}

func (h *Handler) keepAlive(c *conn, done <-chan struct{}) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
