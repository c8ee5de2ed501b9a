package memory

import (
	"context"
	"sync"

	"github.com/samber/lo"
	"github.com/zeni-bff/internal/domain"
)

// DeviceRepo keeps push registrations per user in registration order.
type DeviceRepo struct {
	mu     sync.RWMutex
	byUser map[string][]domain.Device
}

func NewDeviceRepo() *DeviceRepo {
	return &DeviceRepo{byUser: make(map[string][]domain.Device)}
}

// Upsert replaces any registration of the same token for the user and appends d.
func (r *DeviceRepo) Upsert(_ context.Context, d *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := lo.Reject(r.byUser[d.UserID], func(e domain.Device, _ int) bool { return e.Token == d.Token })
	r.byUser[d.UserID] = append(kept, *d)
	return nil
}

func (r *DeviceRepo) ListByUser(_ context.Context, userID string) ([]domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Device(nil), r.byUser[userID]...), nil
}

func (r *DeviceRepo) ListAll(_ context.Context) ([]domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Flatten(lo.Values(r.byUser)), nil
}

// Delete drops the user's registration of token. Unknown pairs are a no-op.
func (r *DeviceRepo) Delete(_ context.Context, userID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := lo.Reject(r.byUser[userID], func(e domain.Device, _ int) bool { return e.Token == token })
	if len(kept) == 0 {
		delete(r.byUser, userID)
		return nil
	}
	r.byUser[userID] = kept
	return nil
}
