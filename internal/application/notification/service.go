package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/zeni-bff/internal/domain"
	"github.com/zeni-bff/internal/infrastructure/metrics"
	"github.com/zeni-bff/internal/pkg/clock"
	"github.com/zeni-bff/internal/pkg/validate"
)

// DefaultListLimit caps List when the caller gives no positive limit.
const DefaultListLimit = 50

// Service is the notification ledger: device registrations plus one
// notification copy per recipient with read state.
type Service interface {
	RegisterDevice(ctx context.Context, req domain.RegisterDeviceRequest) ([]domain.Device, error)
	// RecordForRecipients stores one unread copy of draft per recipient. With no
	// recipients it targets every known user.
	RecordForRecipients(ctx context.Context, userIDs []string, draft Draft) ([]domain.Notification, error)
	List(ctx context.Context, userID string, opts ListOptions) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	TokensFor(ctx context.Context, userIDs []string) ([]string, error)
	AllTokens(ctx context.Context) ([]string, error)
	// ForgetTokens drops every registration of the given tokens and reports how
	// many were removed.
	ForgetTokens(ctx context.Context, tokens []string) (int, error)
	// KnownUsers is the union of device owners and notification recipients.
	KnownUsers(ctx context.Context) ([]string, error)
}

// Draft is the shared content of a send before it is copied per recipient.
type Draft struct {
	ID             string
	Title          string
	Body           string
	TargetAudience string
	Channel        string
	CreatedAt      time.Time
}

type ListOptions struct {
	UnreadOnly bool
	Limit      int
}

type notificationStore interface {
	Prepend(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string, at time.Time) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
	UserIDs(ctx context.Context) ([]string, error)
}

type deviceStore interface {
	Upsert(ctx context.Context, d *domain.Device) error
	ListByUser(ctx context.Context, userID string) ([]domain.Device, error)
	ListAll(ctx context.Context) ([]domain.Device, error)
	Delete(ctx context.Context, userID, token string) error
}

type service struct {
	notifications notificationStore
	devices       deviceStore
	clock         clock.Clocker
}

func NewService(notifications notificationStore, devices deviceStore, clk clock.Clocker) Service {
	if clk == nil {
		clk = clock.New()
	}
	return &service{notifications: notifications, devices: devices, clock: clk}
}

func (s *service) RegisterDevice(ctx context.Context, req domain.RegisterDeviceRequest) ([]domain.Device, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.Token = strings.TrimSpace(req.Token)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	platform := strings.TrimSpace(req.Platform)
	if platform == "" {
		platform = domain.PlatformUnknown
	}
	d := &domain.Device{
		UserID:    req.UserID,
		Token:     req.Token,
		Platform:  platform,
		UpdatedAt: s.clock.Now(),
	}
	if err := s.devices.Upsert(ctx, d); err != nil {
		return nil, fmt.Errorf("register device: %w", err)
	}
	return s.devices.ListByUser(ctx, req.UserID)
}

func (s *service) RecordForRecipients(ctx context.Context, userIDs []string, draft Draft) ([]domain.Notification, error) {
	recipients := lo.Uniq(lo.Compact(userIDs))
	if len(recipients) == 0 {
		all, err := s.KnownUsers(ctx)
		if err != nil {
			return nil, err
		}
		recipients = all
	}

	stored := make([]domain.Notification, 0, len(recipients))
	for _, uid := range recipients {
		n := domain.Notification{
			ID:             draft.ID,
			UserID:         uid,
			Title:          draft.Title,
			Body:           draft.Body,
			TargetAudience: draft.TargetAudience,
			Channel:        draft.Channel,
			CreatedAt:      draft.CreatedAt,
		}
		if err := s.notifications.Prepend(ctx, &n); err != nil {
			return stored, fmt.Errorf("store notification for %s: %w", uid, err)
		}
		stored = append(stored, n)
	}
	metrics.NotificationsStored.Add(float64(len(stored)))
	return stored, nil
}

// List filters before truncating, so UnreadOnly with Limit yields up to Limit
// unread entries.
func (s *service) List(ctx context.Context, userID string, opts ListOptions) ([]domain.Notification, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	all, err := s.notifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if opts.UnreadOnly {
		all = lo.Filter(all, func(n domain.Notification, _ int) bool { return !n.Read })
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(all) > limit {
		all = all[:limit]
	}
	if all == nil {
		all = []domain.Notification{}
	}
	return all, nil
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	all, err := s.notifications.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return lo.CountBy(all, func(n domain.Notification) bool { return !n.Read }), nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if notificationID == "" {
		return nil, fmt.Errorf("notificationId is required: %w", domain.ErrBadRequest)
	}
	return s.notifications.MarkRead(ctx, userID, notificationID, s.clock.Now())
}

func (s *service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	return s.notifications.MarkAllRead(ctx, userID, s.clock.Now())
}

func (s *service) TokensFor(ctx context.Context, userIDs []string) ([]string, error) {
	var tokens []string
	for _, uid := range lo.Uniq(lo.Compact(userIDs)) {
		devices, err := s.devices.ListByUser(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("devices for %s: %w", uid, err)
		}
		tokens = append(tokens, deviceTokens(devices)...)
	}
	return lo.Uniq(tokens), nil
}

func (s *service) AllTokens(ctx context.Context) ([]string, error) {
	devices, err := s.devices.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	return lo.Uniq(deviceTokens(devices)), nil
}

func (s *service) ForgetTokens(ctx context.Context, tokens []string) (int, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	devices, err := s.devices.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list devices: %w", err)
	}
	stale := lo.Filter(devices, func(d domain.Device, _ int) bool { return lo.Contains(tokens, d.Token) })
	removed := 0
	for _, d := range stale {
		if err := s.devices.Delete(ctx, d.UserID, d.Token); err != nil {
			return removed, fmt.Errorf("forget device of %s: %w", d.UserID, err)
		}
		removed++
	}
	return removed, nil
}

func (s *service) KnownUsers(ctx context.Context) ([]string, error) {
	devices, err := s.devices.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	recipients, err := s.notifications.UserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	owners := lo.Map(devices, func(d domain.Device, _ int) string { return d.UserID })
	return lo.Uniq(append(owners, recipients...)), nil
}

func deviceTokens(devices []domain.Device) []string {
	return lo.FilterMap(devices, func(d domain.Device, _ int) (string, bool) {
		return d.Token, d.Token != ""
	})
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("userId is required: %w", domain.ErrBadRequest)
	}
	return nil
}
