package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/zeni-bff/internal/infrastructure/metrics"
)

type otpSweeper interface {
	SweepExpired() int
}

type clientPruner interface {
	Prune() int
}

// StartOTPSweepJob removes expired passcodes every interval until ctx ends.
func StartOTPSweepJob(ctx context.Context, interval time.Duration, store otpSweeper) {
	if interval <= 0 {
		interval = time.Minute
	}
	runEvery(ctx, interval, func() {
		if n := store.SweepExpired(); n > 0 {
			metrics.OTPSwept.Add(float64(n))
			slog.Info("otp sweep removed expired codes", "count", n)
		}
	})
}

// StartLivePruneJob drops closed realtime clients every interval until ctx ends.
func StartLivePruneJob(ctx context.Context, interval time.Duration, registry clientPruner) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	runEvery(ctx, interval, func() {
		if n := registry.Prune(); n > 0 {
			slog.Info("pruned closed live clients", "count", n)
		}
	})
}

func runEvery(ctx context.Context, interval time.Duration, tick func()) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}
