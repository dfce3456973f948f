package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "emrcost"

const (
	CacheHit  = "hit"
	CacheMiss = "miss"

	SkipNoLifecycle   = "no_lifecycle"
	SkipEmptyWindow   = "empty_window"
	SkipNoSpotPrice   = "no_spot_price"
	SkipUnknownMarket = "unknown_market"
)

// Collector holds the counters exported by the cost calculator.
// A nil *Collector is valid and records nothing.
type Collector struct {
	spotHistoryPages prometheus.Counter
	spotCacheLookups *prometheus.CounterVec
	awsCallRetries   *prometheus.CounterVec
	instancesSkipped *prometheus.CounterVec
}

func NewCollector() *Collector {
	return &Collector{
		spotHistoryPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spot_history_pages_total",
			Help:      "Spot price history pages fetched from the source.",
		}),
		spotCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spot_cache_lookups_total",
			Help:      "Spot price cache coverage checks by result.",
		}, []string{"result"}),
		awsCallRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aws_call_retries_total",
			Help:      "Retried AWS API calls by operation.",
		}, []string{"operation"}),
		instancesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instances_skipped_total",
			Help:      "Instances excluded from cost totals by reason.",
		}, []string{"reason"}),
	}
}

func (c *Collector) Register(reg prometheus.Registerer) error {
	return errors.Join(
		reg.Register(c.spotHistoryPages),
		reg.Register(c.spotCacheLookups),
		reg.Register(c.awsCallRetries),
		reg.Register(c.instancesSkipped),
	)
}

func (c *Collector) SpotHistoryPage() {
	if c == nil {
		return
	}
	c.spotHistoryPages.Inc()
}

func (c *Collector) SpotCacheLookup(result string) {
	if c == nil {
		return
	}
	c.spotCacheLookups.WithLabelValues(result).Inc()
}

func (c *Collector) AWSCallRetry(operation string) {
	if c == nil {
		return
	}
	c.awsCallRetries.WithLabelValues(operation).Inc()
}

func (c *Collector) InstanceSkipped(reason string) {
	if c == nil {
		return
	}
	c.instancesSkipped.WithLabelValues(reason).Inc()
}
