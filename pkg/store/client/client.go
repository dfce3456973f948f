package client

import (
	"context"
	"time"

	"github.com/de-tools/emr-cost/pkg/metrics"
	"github.com/de-tools/emr-cost/pkg/services/retry"
	"github.com/rs/zerolog"
)

type Option func(*caller)

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *caller) {
		c.policy = p
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *caller) {
		c.metrics = m
	}
}

// caller runs AWS API calls under the retry policy.
type caller struct {
	policy  retry.Policy
	metrics *metrics.Collector
}

func newCaller(opts []Option) caller {
	c := caller{policy: retry.DefaultPolicy()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c caller) call(ctx context.Context, operation string, fn func() error) error {
	policy := c.policy
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.metrics.AWSCallRetry(operation)
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("operation", operation).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("retrying AWS call")
	}
	return policy.Do(ctx, fn)
}
