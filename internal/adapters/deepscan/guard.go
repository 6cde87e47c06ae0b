package deepscan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mikey/phishguard/internal/core"
)

// ErrRateLimited is returned when the guard's budget is spent. It wraps ErrSkipped.
var ErrRateLimited = fmt.Errorf("%w: rate limit reached", ErrSkipped)

// GuardConfig tunes a Guard.
type GuardConfig struct {
	Timeout         time.Duration
	RatePerMinute   int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Guard wraps a scanner with a timeout, a token bucket and a circuit breaker.
type Guard struct {
	next    core.DeepScanner
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// NewGuard wraps next.
func NewGuard(next core.DeepScanner, cfg GuardConfig, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	settings := gobreaker.Settings{
		Name:        "deep-scan-" + next.Name(),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrSkipped)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Deep scan circuit breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	limit := rate.Inf
	burst := 1
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
		burst = cfg.RatePerMinute
	}

	return &Guard{
		next:    next,
		cb:      gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(limit, burst),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Name returns the wrapped provider's name
func (g *Guard) Name() string {
	return g.next.Name()
}

// State reports the breaker state.
func (g *Guard) State() gobreaker.State {
	return g.cb.State()
}

// Scan forwards to the wrapped scanner when the budget and the breaker allow it.
func (g *Guard) Scan(ctx context.Context, email core.EmailData, local core.AnalysisResult) (*core.DeepScanReport, error) {
	if !g.limiter.Allow() {
		return nil, ErrRateLimited
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.cb.Execute(func() (interface{}, error) {
		return g.next.Scan(ctx, email, local)
	})
	if err != nil {
		return nil, err
	}
	report, _ := out.(*core.DeepScanReport)
	return report, nil
}
