package spot

import (
	"context"
	"fmt"

	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/shopspring/decimal"
)

// Pricer bills spot instances against cached price history.
type Pricer struct {
	cache *Cache
}

func NewPricer(cache *Cache) *Pricer {
	return &Pricer{cache: cache}
}

// BilledCost returns the time-weighted spot cost of the interval.
func (p *Pricer) BilledCost(ctx context.Context, interval domain.BilledInterval) (decimal.Decimal, error) {
	if interval.Duration() == 0 {
		return decimal.Zero, nil
	}

	err := p.cache.EnsureCovered(ctx, interval.InstanceType, interval.AvailabilityZone, interval.Start, interval.End)
	if err != nil {
		return decimal.Zero, fmt.Errorf("spot price history for %s: %w", interval.Key(), err)
	}

	series := p.cache.Series(interval.InstanceType, interval.AvailabilityZone)
	cost, err := Integrate(series, interval.Start, interval.End)
	if err != nil {
		return decimal.Zero, fmt.Errorf("spot price history for %s: %w", interval.Key(), err)
	}
	return cost, nil
}
