package webpush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	wp "github.com/SherClockHolmes/webpush-go"
	"github.com/zeni-bff/internal/domain"
	"github.com/zeni-bff/internal/infrastructure/push"
)

const providerName = "webpush"

// ErrSubscriptionGone marks a subscription the push service no longer accepts.
var ErrSubscriptionGone = fmt.Errorf("subscription expired or unsubscribed: %w", domain.ErrTokenGone)

// NotificationSender sends one encrypted payload to one subscription.
type NotificationSender interface {
	Send(ctx context.Context, payload []byte, sub *wp.Subscription, options *wp.Options) (*http.Response, error)
}

type librarySender struct{}

func (librarySender) Send(ctx context.Context, payload []byte, sub *wp.Subscription, options *wp.Options) (*http.Response, error) {
	return wp.SendNotificationWithContext(ctx, payload, sub, options)
}

// Sender delivers browser pushes. Each device token is a JSON-encoded
// PushSubscription ({"endpoint":…,"keys":{"p256dh":…,"auth":…}}).
type Sender struct {
	sender      NotificationSender
	options     *wp.Options
	concurrency int
}

func NewSender(publicKey, privateKey, subscriber string, concurrency int) (*Sender, error) {
	if publicKey == "" || privateKey == "" {
		return nil, errors.New("vapid keys are not configured")
	}
	return &Sender{
		sender: librarySender{},
		options: &wp.Options{
			Subscriber:      subscriber,
			VAPIDPublicKey:  publicKey,
			VAPIDPrivateKey: privateKey,
			TTL:             3600,
			Urgency:         wp.UrgencyNormal,
		},
		concurrency: concurrency,
	}, nil
}

type payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

func (s *Sender) Send(ctx context.Context, tokens []string, msg domain.PushMessage) (domain.PushReport, error) {
	body, err := json.Marshal(payload{Title: msg.Title, Body: msg.Body, Data: msg.Data})
	if err != nil {
		return domain.PushReport{}, fmt.Errorf("marshal web push payload: %w", err)
	}
	return push.FanOut(ctx, providerName, tokens, s.concurrency, func(ctx context.Context, token string) error {
		var sub wp.Subscription
		if err := json.Unmarshal([]byte(token), &sub); err != nil || sub.Endpoint == "" {
			return fmt.Errorf("token is not a push subscription")
		}
		resp, err := s.sender.Send(ctx, body, &sub, s.options)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
			return ErrSubscriptionGone
		case resp.StatusCode >= 300:
			return fmt.Errorf("push service returned %d", resp.StatusCode)
		}
		return nil
	})
}
