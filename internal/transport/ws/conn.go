package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeni-bff/internal/domain"
	"go.uber.org/atomic"
)

const writeWait = 10 * time.Second

// conn adapts a websocket to realtime.Transport. gorilla/websocket allows
// one concurrent writer, so every write goes through mu.
type conn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	broken atomic.Bool // a write failed
	closed atomic.Bool
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws}
}

func (c *conn) Send(msg domain.LiveMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(msg); err != nil {
		c.broken.Store(true)
		return err
	}
	return nil
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		c.broken.Store(true)
		return err
	}
	return nil
}

func (c *conn) Alive() bool { return !c.broken.Load() && !c.closed.Load() }

// Close is safe to call more than once.
func (c *conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.mu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.ws.Close()
}
