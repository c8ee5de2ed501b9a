package smtp

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

const otpSubject = "Your admin sign-in code"

var otpTemplate = template.Must(template.New("otp").Parse(`<div style="font-family:sans-serif">
<p>Use the code below to finish signing in to the admin console.</p>
<p style="font-size:28px;letter-spacing:6px;font-weight:bold">{{.Code}}</p>
<p>The code expires in {{.Minutes}} minutes. If you did not request it, ignore this email.</p>
</div>`))

// OTPMailer renders passcode emails and retries transient SMTP failures.
type OTPMailer struct {
	mailer     Mailer
	maxRetries uint64
	base       time.Duration
}

func NewOTPMailer(m Mailer, maxRetries int) *OTPMailer {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &OTPMailer{mailer: m, maxRetries: uint64(maxRetries), base: 200 * time.Millisecond}
}

func (o *OTPMailer) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	var body bytes.Buffer
	if err := otpTemplate.Execute(&body, struct {
		Code    string
		Minutes int
	}{Code: code, Minutes: int(ttl.Round(time.Minute) / time.Minute)}); err != nil {
		return fmt.Errorf("render otp email: %w", err)
	}

	b := retry.NewExponential(o.base)
	b = retry.WithCappedDuration(2*time.Second, b)
	b = retry.WithMaxRetries(o.maxRetries, b)

	attempt := 0
	return retry.Do(ctx, b, func(_ context.Context) error {
		attempt++
		if err := o.mailer.SendEmail(to, otpSubject, body.String()); err != nil {
			slog.Warn("otp email attempt failed", "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}
