package push

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zeni-bff/internal/domain"
	"github.com/zeni-bff/internal/infrastructure/metrics"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// ErrAllFailed is returned when every token in a batch was rejected.
var ErrAllFailed = errors.New("push rejected for every token")

// FanOut calls send once per token with at most limit calls in flight.
// Per-token failures are counted, not propagated. Tokens whose error wraps
// domain.ErrTokenGone are collected in the report. The batch only errors when
// nothing was delivered and at least one token failed, or ctx ends early.
func FanOut(ctx context.Context, provider string, tokens []string, limit int, send func(ctx context.Context, token string) error) (domain.PushReport, error) {
	if limit <= 0 {
		limit = 1
	}
	var (
		sent, failed atomic.Int64
		firstErr     atomic.Error
		goneMu       sync.Mutex
		gone         []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, tok := range tokens {
		g.Go(func() error {
			if err := send(gctx, tok); err != nil {
				if failed.Inc() == 1 {
					firstErr.Store(err)
				}
				if errors.Is(err, domain.ErrTokenGone) {
					goneMu.Lock()
					gone = append(gone, tok)
					goneMu.Unlock()
				}
				metrics.PushTokens.WithLabelValues(provider, "failed").Inc()
				return nil
			}
			sent.Inc()
			metrics.PushTokens.WithLabelValues(provider, "sent").Inc()
			return nil
		})
	}
	_ = g.Wait()

	report := domain.PushReport{Sent: int(sent.Load()), Failed: int(failed.Load()), Gone: gone}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if report.Sent == 0 && report.Failed > 0 {
		return report, fmt.Errorf("%w: %w", ErrAllFailed, firstErr.Load())
	}
	return report, nil
}
