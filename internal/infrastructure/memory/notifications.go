package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/zeni-bff/internal/domain"
)

// NotificationRepo keeps each user's notifications newest-first.
type NotificationRepo struct {
	mu     sync.RWMutex
	byUser map[string][]*domain.Notification
}

func NewNotificationRepo() *NotificationRepo {
	return &NotificationRepo{byUser: make(map[string][]*domain.Notification)}
}

// Prepend stores n at the head of its owner's list.
func (r *NotificationRepo) Prepend(_ context.Context, n *domain.Notification) error {
	cp := *n
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[n.UserID] = append([]*domain.Notification{&cp}, r.byUser[n.UserID]...)
	return nil
}

func (r *NotificationRepo) ListByUser(_ context.Context, userID string) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.byUser[userID], func(n *domain.Notification, _ int) domain.Notification {
		return *n
	}), nil
}

// MarkRead flags one entry read. Already-read entries keep their first ReadAt.
func (r *NotificationRepo) MarkRead(_ context.Context, userID, notificationID string, at time.Time) (*domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := lo.Find(r.byUser[userID], func(n *domain.Notification) bool { return n.ID == notificationID })
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	if !n.Read {
		n.Read = true
		n.ReadAt = &at
	}
	cp := *n
	return &cp, nil
}

func (r *NotificationRepo) MarkAllRead(_ context.Context, userID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flipped := 0
	for _, n := range r.byUser[userID] {
		if !n.Read {
			n.Read = true
			n.ReadAt = &at
			flipped++
		}
	}
	return flipped, nil
}

// UserIDs lists every user with at least one notification.
func (r *NotificationRepo) UserIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.byUser), nil
}
