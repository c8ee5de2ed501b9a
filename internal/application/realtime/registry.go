package realtime

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"
	"github.com/zeni-bff/internal/domain"
	"github.com/zeni-bff/internal/infrastructure/metrics"
	"github.com/zeni-bff/internal/pkg/id"
)

// Transport is one open bidirectional connection.
type Transport interface {
	Send(msg domain.LiveMessage) error
	Alive() bool
	Close() error
}

// Client is a live connection, optionally bound to a user.
type Client struct {
	ID        string
	UserID    string
	transport Transport
}

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId"`
}

// Registry tracks connected clients and fans messages out to them. Writes
// happen outside the lock against a snapshot taken under it.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Connect registers t and greets it with a welcome frame carrying its id.
func (r *Registry) Connect(t Transport, userID string) (*Client, error) {
	c := &Client{ID: id.New(), UserID: userID, transport: t}
	r.mu.Lock()
	r.clients[c.ID] = c
	r.updateGauge()
	r.mu.Unlock()

	welcome := domain.LiveMessage{
		Type:    domain.LiveWelcome,
		Payload: WelcomePayload{ClientID: c.ID, UserID: userID},
	}
	if err := t.Send(welcome); err != nil {
		r.remove(c)
		return nil, fmt.Errorf("send welcome: %w", err)
	}
	return c, nil
}

// Register binds an already connected client to userID.
func (r *Registry) Register(clientID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return false
	}
	c.UserID = userID
	return true
}

func (r *Registry) Disconnect(clientID string) {
	r.mu.Lock()
	c, ok := r.clients[clientID]
	if ok {
		delete(r.clients, clientID)
		r.updateGauge()
	}
	r.mu.Unlock()
	if ok {
		_ = c.transport.Close()
	}
}

// Prune drops clients whose transport is no longer open.
func (r *Registry) Prune() int {
	r.mu.Lock()
	dead := r.pruneLocked()
	r.mu.Unlock()
	for _, c := range dead {
		_ = c.transport.Close()
	}
	return len(dead)
}

// Broadcast writes msg to every open client bound to one of userIDs, or to
// every open client when userIDs is nil. Clients that fail the write are
// removed. It returns the number of successful writes.
func (r *Registry) Broadcast(msg domain.LiveMessage, userIDs []string) int {
	r.mu.Lock()
	dead := r.pruneLocked()
	var targets []*Client
	if userIDs == nil {
		targets = lo.Values(r.clients)
	} else {
		want := lo.SliceToMap(userIDs, func(u string) (string, struct{}) { return u, struct{}{} })
		targets = lo.Filter(lo.Values(r.clients), func(c *Client, _ int) bool {
			_, ok := want[c.UserID]
			return c.UserID != "" && ok
		})
	}
	r.mu.Unlock()

	for _, c := range dead {
		_ = c.transport.Close()
	}

	delivered := 0
	for _, c := range targets {
		if err := c.transport.Send(msg); err != nil {
			slog.Warn("live client write failed", "client", c.ID, "err", err)
			r.remove(c)
			continue
		}
		delivered++
	}
	metrics.LiveDeliveries.Add(float64(delivered))
	return delivered
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Registry) Get(clientID string) (Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[clientID]
	if !ok {
		return Client{}, false
	}
	return Client{ID: c.ID, UserID: c.UserID}, true
}

// remove deletes c only if it is still the registered instance for its id.
func (r *Registry) remove(c *Client) {
	r.mu.Lock()
	if cur, ok := r.clients[c.ID]; ok && cur == c {
		delete(r.clients, c.ID)
		r.updateGauge()
	}
	r.mu.Unlock()
	_ = c.transport.Close()
}

func (r *Registry) pruneLocked() []*Client {
	var dead []*Client
	for cid, c := range r.clients {
		if !c.transport.Alive() {
			delete(r.clients, cid)
			dead = append(dead, c)
		}
	}
	if len(dead) > 0 {
		r.updateGauge()
	}
	return dead
}

func (r *Registry) updateGauge() {
	metrics.LiveClients.Set(float64(len(r.clients)))
}
