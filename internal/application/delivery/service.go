package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/zeni-bff/internal/application/notification"
	"github.com/zeni-bff/internal/domain"
	"github.com/zeni-bff/internal/pkg/clock"
	"github.com/zeni-bff/internal/pkg/id"
	"github.com/zeni-bff/internal/pkg/validate"
)

const (
	defaultTestTitle = "Test Push Notification"
	defaultTestBody  = "If you see this, push is working."
)

// ErrPushUnavailable is reported when no push provider is configured.
var ErrPushUnavailable = errors.New("push provider not configured")

type SendRequest struct {
	Title          string   `json:"title" validate:"required"`
	Body           string   `json:"body" validate:"required"`
	TargetAudience string   `json:"targetAudience"`
	Channel        string   `json:"channel" validate:"omitempty,oneof=mobile in_app both"`
	UserIDs        []string `json:"userIds"`
}

type TestPushRequest struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// PushOutcome is the mobile channel's result. A failed or skipped provider
// call is reported here and never aborts the other channels.
type PushOutcome struct {
	Success bool   `json:"success"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type Channels struct {
	FCM   bool `json:"fcm"`
	InApp bool `json:"inApp"`
}

type SendResult struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	Body           string       `json:"body"`
	TargetAudience string       `json:"targetAudience"`
	SentAt         time.Time    `json:"sentAt"`
	Channels       Channels     `json:"channels"`
	Delivered      Channels     `json:"delivered"`
	Push           *PushOutcome `json:"push,omitempty"`
	LiveRecipients int          `json:"liveRecipients"`
	StoredForUsers int          `json:"storedForUsers"`
}

type TestPushResult struct {
	TokensTried int         `json:"tokensTried"`
	Result      PushOutcome `json:"result"`
}

// LivePayload is the body of an in-app "notification" frame.
type LivePayload struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	TargetAudience string    `json:"targetAudience"`
	SentAt         time.Time `json:"sentAt"`
}

// Service coordinates one send across the ledger, push and live channels.
type Service interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
	// SendTestPush exercises only the push path and writes nothing to the ledger.
	SendTestPush(ctx context.Context, req TestPushRequest) (*TestPushResult, error)
}

type ledger interface {
	RecordForRecipients(ctx context.Context, userIDs []string, draft notification.Draft) ([]domain.Notification, error)
	TokensFor(ctx context.Context, userIDs []string) ([]string, error)
	AllTokens(ctx context.Context) ([]string, error)
	ForgetTokens(ctx context.Context, tokens []string) (int, error)
}

type pushSender interface {
	Send(ctx context.Context, tokens []string, msg domain.PushMessage) (domain.PushReport, error)
}

type broadcaster interface {
	Broadcast(msg domain.LiveMessage, userIDs []string) int
}

type ServiceDeps struct {
	Ledger      ledger
	Push        pushSender // nil disables the mobile channel
	Broadcaster broadcaster
	Clock       clock.Clocker
}

type service struct {
	ledger      ledger
	push        pushSender
	broadcaster broadcaster
	clock       clock.Clocker
}

func NewService(d ServiceDeps) Service {
	clk := d.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &service{ledger: d.Ledger, push: d.Push, broadcaster: d.Broadcaster, clock: clk}
}

func (s *service) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	req.Channel = strings.TrimSpace(req.Channel)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.Channel == "" {
		req.Channel = domain.ChannelBoth
	}
	if strings.TrimSpace(req.TargetAudience) == "" {
		req.TargetAudience = domain.AudienceAll
	}
	recipients := lo.Uniq(lo.Compact(req.UserIDs))

	res := &SendResult{
		ID:             id.New(),
		Title:          req.Title,
		Body:           req.Body,
		TargetAudience: req.TargetAudience,
		SentAt:         s.clock.Now(),
		Channels: Channels{
			FCM:   domain.IncludesMobile(req.Channel),
			InApp: domain.IncludesInApp(req.Channel),
		},
	}

	stored, err := s.ledger.RecordForRecipients(ctx, recipients, notification.Draft{
		ID:             res.ID,
		Title:          res.Title,
		Body:           res.Body,
		TargetAudience: res.TargetAudience,
		Channel:        req.Channel,
		CreatedAt:      res.SentAt,
	})
	if err != nil {
		return nil, fmt.Errorf("record notification: %w", err)
	}
	res.StoredForUsers = len(stored)

	if res.Channels.FCM {
		out := s.pushTo(ctx, recipients, domain.PushMessage{
			Title: res.Title,
			Body:  res.Body,
			Data: map[string]string{
				"notificationId": res.ID,
				"channel":        req.Channel,
				"targetAudience": res.TargetAudience,
			},
		})
		res.Push = &out
		res.Delivered.FCM = out.Success
	}

	if res.Channels.InApp && s.broadcaster != nil {
		var filter []string
		if len(recipients) > 0 {
			filter = recipients
		}
		res.LiveRecipients = s.broadcaster.Broadcast(domain.LiveMessage{
			Type: domain.LiveNotification,
			Payload: LivePayload{
				ID:             res.ID,
				Title:          res.Title,
				Body:           res.Body,
				TargetAudience: res.TargetAudience,
				SentAt:         res.SentAt,
			},
		}, filter)
		res.Delivered.InApp = true
	}

	slog.Info("notification sent",
		"id", res.ID, "channel", req.Channel, "stored", res.StoredForUsers, "live", res.LiveRecipients)
	return res, nil
}

func (s *service) SendTestPush(ctx context.Context, req TestPushRequest) (*TestPushResult, error) {
	var (
		tokens []string
		err    error
	)
	switch {
	case strings.TrimSpace(req.Token) != "":
		tokens = []string{strings.TrimSpace(req.Token)}
	case strings.TrimSpace(req.UserID) != "":
		tokens, err = s.ledger.TokensFor(ctx, []string{strings.TrimSpace(req.UserID)})
	default:
		tokens, err = s.ledger.AllTokens(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve tokens: %w", err)
	}

	msg := domain.PushMessage{
		Title: lo.CoalesceOrEmpty(strings.TrimSpace(req.Title), defaultTestTitle),
		Body:  lo.CoalesceOrEmpty(strings.TrimSpace(req.Body), defaultTestBody),
		Data:  map[string]string{"test": "true"},
	}
	return &TestPushResult{TokensTried: len(tokens), Result: s.sendPush(ctx, tokens, msg)}, nil
}

// pushTo resolves recipients to tokens and sends. Lookup failures degrade to a
// failed outcome like provider errors do.
func (s *service) pushTo(ctx context.Context, recipients []string, msg domain.PushMessage) PushOutcome {
	var (
		tokens []string
		err    error
	)
	if len(recipients) > 0 {
		tokens, err = s.ledger.TokensFor(ctx, recipients)
	} else {
		tokens, err = s.ledger.AllTokens(ctx)
	}
	if err != nil {
		slog.Warn("push token lookup failed", "err", err)
		return PushOutcome{Reason: err.Error()}
	}
	return s.sendPush(ctx, tokens, msg)
}

// forgetGone unregisters tokens the provider rejected permanently so later
// sends skip them.
func (s *service) forgetGone(ctx context.Context, gone []string) {
	if len(gone) == 0 {
		return
	}
	removed, err := s.ledger.ForgetTokens(ctx, gone)
	if err != nil {
		slog.Warn("forget stale push tokens failed", "tokens", len(gone), "err", err)
		return
	}
	slog.Info("forgot stale push tokens", "tokens", len(gone), "devices", removed)
}

func (s *service) sendPush(ctx context.Context, tokens []string, msg domain.PushMessage) PushOutcome {
	if len(tokens) == 0 {
		return PushOutcome{Success: true}
	}
	if s.push == nil {
		return PushOutcome{Reason: ErrPushUnavailable.Error()}
	}
	report, err := s.push.Send(ctx, tokens, msg)
	s.forgetGone(ctx, report.Gone)
	if err != nil {
		slog.Warn("push send failed", "tokens", len(tokens), "err", err)
		return PushOutcome{Reason: err.Error(), Failed: report.Failed}
	}
	return PushOutcome{Success: true, Sent: report.Sent, Failed: report.Failed}
}
