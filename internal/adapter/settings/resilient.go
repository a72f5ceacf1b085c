package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"aisetup/internal/domain"
	"aisetup/internal/infra/config"
)

// Defaults used when the matching SinkConfig field is zero.
const (
	defaultMaxFailures  uint32        = 5
	defaultOpenTimeout  time.Duration = 30 * time.Second
	defaultWriteTimeout time.Duration = 5 * time.Second
	defaultInterval     time.Duration = 60 * time.Second
)

// ResilientSink wraps a SettingsSink with a write throttle, bounded retries
// of transient failures and a circuit breaker. When the inner sink keeps
// failing the circuit opens and writes fail fast with domain.ErrSinkOpen.
type ResilientSink struct {
	inner   domain.SettingsSink
	breaker *gobreaker.CircuitBreaker[struct{}]
	limiter *rate.Limiter
	logger  *slog.Logger

	writeTimeout time.Duration
	retries      int
	backoff      time.Duration
}

var _ domain.SettingsSink = (*ResilientSink)(nil)

// NewResilientSink wraps inner according to cfg.
func NewResilientSink(inner domain.SettingsSink, cfg config.SinkConfig, logger *slog.Logger) *ResilientSink {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultOpenTimeout
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = defaultWriteTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.WritesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.WritesPerSecond), max(cfg.Burst, 1))
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "settings-sink",
		MaxRequests: 1, // single probe while half-open
		Interval:    defaultInterval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// Caller mistakes such as an empty token say nothing about sink health.
		IsSuccessful: func(err error) bool {
			return err == nil || !domain.IsRetryableError(err)
		},
	})

	return &ResilientSink{
		inner:        inner,
		breaker:      cb,
		limiter:      limiter,
		logger:       logger,
		writeTimeout: writeTimeout,
		retries:      max(cfg.Retries, 0),
		backoff:      cfg.RetryBackoff,
	}
}

func (r *ResilientSink) UpdateStatus(ctx context.Context, platform domain.PlatformType, selected bool) error {
	return r.do(ctx, "UpdateStatus", platform, func(ctx context.Context) error {
		return r.inner.UpdateStatus(ctx, platform, selected)
	})
}

func (r *ResilientSink) UpdateToken(ctx context.Context, platform domain.PlatformType, token string) error {
	return r.do(ctx, "UpdateToken", platform, func(ctx context.Context) error {
		return r.inner.UpdateToken(ctx, platform, token)
	})
}

func (r *ResilientSink) UpdateModel(ctx context.Context, platform domain.PlatformType, model string) error {
	return r.do(ctx, "UpdateModel", platform, func(ctx context.Context) error {
		return r.inner.UpdateModel(ctx, platform, model)
	})
}

// State returns the current circuit breaker state.
func (r *ResilientSink) State() gobreaker.State {
	return r.breaker.State()
}

func (r *ResilientSink) do(ctx context.Context, op string, platform domain.PlatformType, write func(context.Context) error) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.WrapOp(op, fmt.Errorf("%w: %v", domain.ErrSinkLimited, err))
	}

	var err error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			r.logger.Debug("retrying settings write",
				"op", op,
				"platform", platform,
				"attempt", attempt,
				"code", domain.ErrorCodeOf(err),
				"error", err,
			)
			if !sleep(ctx, r.backoff<<(attempt-1)) {
				return domain.WrapOp(op, ctx.Err())
			}
		}

		_, err = r.breaker.Execute(func() (struct{}, error) {
			wctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
			defer cancel()
			werr := write(wctx)
			if werr != nil && errors.Is(wctx.Err(), context.DeadlineExceeded) {
				werr = domain.NewSubSystemError("settings", op, domain.ErrTimeout, werr.Error())
			}
			return struct{}{}, werr
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.WrapOp(op, domain.ErrSinkOpen)
		}
		if err == nil || !domain.IsRetryableError(err) {
			return err
		}
	}
	return domain.NewDomainError(op,
		fmt.Errorf("%w after %d attempts: %w", domain.ErrSinkWrite, r.retries+1, err), string(platform))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
