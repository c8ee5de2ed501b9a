package adminauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zeni-bff/internal/domain"
	"github.com/zeni-bff/internal/infrastructure/metrics"
	"github.com/zeni-bff/internal/pkg/clock"
	"github.com/zeni-bff/internal/pkg/mask"
	"github.com/zeni-bff/internal/pkg/validate"
)

type SendOTPRequest struct {
	Email string `json:"email" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

// Session is a freshly minted admin bearer token.
type Session struct {
	Token     string
	ExpiresIn string
	ExpiresAt time.Time
}

// Service runs the emailed-passcode sign-in for the admin console.
type Service interface {
	// RequestOTP issues and emails a passcode and returns the masked address.
	RequestOTP(ctx context.Context, req SendOTPRequest) (string, error)
	// VerifyOTP exchanges a live passcode for a session token. Every failed
	// check surfaces as domain.ErrInvalidOrExpired.
	VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*Session, error)
	Stats() domain.OTPStats
}

type otpStore interface {
	Issue(subject string) (string, error)
	Verify(subject, code string) error
	Revoke(subject string)
	Stats() domain.OTPStats
}

type otpMailer interface {
	SendOTP(ctx context.Context, to, code string, ttl time.Duration) error
}

type tokenSigner interface {
	Sign(email, role string) (string, error)
	Expiry() time.Duration
}

// IdentityAuthorizer decides whether a normalised email may sign in.
type IdentityAuthorizer func(email string) bool

// SingleAdmin authorizes exactly one address. An empty address authorizes nobody.
func SingleAdmin(email string) IdentityAuthorizer {
	want := normalize(email)
	return func(got string) bool { return want != "" && got == want }
}

type ServiceDeps struct {
	Store     otpStore
	Mailer    otpMailer
	Signer    tokenSigner
	Authorize IdentityAuthorizer
	OTPTTL    time.Duration
	ExpiresIn string
	Clock     clock.Clocker
}

type service struct {
	store     otpStore
	mailer    otpMailer
	signer    tokenSigner
	authorize IdentityAuthorizer
	ttl       time.Duration
	expiresIn string
	clock     clock.Clocker
}

func NewService(d ServiceDeps) Service {
	authorize := d.Authorize
	if authorize == nil {
		authorize = func(string) bool { return false }
	}
	clk := d.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &service{
		store:     d.Store,
		mailer:    d.Mailer,
		signer:    d.Signer,
		authorize: authorize,
		ttl:       d.OTPTTL,
		expiresIn: d.ExpiresIn,
		clock:     clk,
	}
}

func (s *service) RequestOTP(ctx context.Context, req SendOTPRequest) (string, error) {
	req.Email = normalize(req.Email)
	if err := validate.Struct(req); err != nil {
		return "", err
	}
	if !s.authorize(req.Email) {
		metrics.OTPRequests.WithLabelValues("forbidden").Inc()
		return "", fmt.Errorf("email is not an admin: %w", domain.ErrForbidden)
	}

	code, err := s.store.Issue(req.Email)
	if err != nil {
		return "", err
	}
	if err := s.mailer.SendOTP(ctx, req.Email, code, s.ttl); err != nil {
		// An undelivered code must not stay live.
		s.store.Revoke(req.Email)
		metrics.OTPRequests.WithLabelValues("delivery_failed").Inc()
		slog.Error("otp email failed", "email", mask.Email(req.Email), "err", err)
		return "", fmt.Errorf("send otp email: %w: %w", domain.ErrDelivery, err)
	}
	metrics.OTPRequests.WithLabelValues("sent").Inc()
	return mask.Email(req.Email), nil
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*Session, error) {
	req.Email = normalize(req.Email)
	req.OTP = strings.TrimSpace(req.OTP)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	if err := s.store.Verify(req.Email, req.OTP); err != nil {
		metrics.OTPVerifications.WithLabelValues(verifyResult(err)).Inc()
		return nil, fmt.Errorf("verify otp: %w", domain.ErrInvalidOrExpired)
	}

	issuedAt := s.clock.Now()
	token, err := s.signer.Sign(req.Email, domain.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("sign admin token: %w", err)
	}
	metrics.OTPVerifications.WithLabelValues("ok").Inc()
	return &Session{
		Token:     token,
		ExpiresIn: s.expiresIn,
		ExpiresAt: issuedAt.Add(s.signer.Expiry()),
	}, nil
}

func (s *service) Stats() domain.OTPStats {
	return s.store.Stats()
}

func verifyResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrOTPExpired):
		return "expired"
	case errors.Is(err, domain.ErrOTPMismatch):
		return "mismatch"
	default:
		return "not_found"
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
