package spot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/de-tools/emr-cost/pkg/metrics"
	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/rs/zerolog"
)

// DefaultGapTolerance bounds both the distance between consecutive samples of a
// fetch and how stale the newest cached sample may be relative to a query end.
// Spot history is sampled at most about a day apart.
const DefaultGapTolerance = 25 * time.Hour

// HistoryFetcher is a paginated source of spot price samples. An empty
// returned token means there are no more pages.
type HistoryFetcher interface {
	FetchSpotPriceHistory(
		ctx context.Context,
		instanceType, zone string,
		start, end time.Time,
		token string,
	) ([]domain.PriceSample, string, error)
}

type CacheOption func(*Cache)

func WithGapTolerance(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.gapTolerance = d
		}
	}
}

func WithMetrics(m *metrics.Collector) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

// Cache keeps every spot price sample fetched per (instance type, zone).
// Entries are only ever extended; nothing is evicted for the lifetime of the Cache.
type Cache struct {
	fetcher      HistoryFetcher
	gapTolerance time.Duration
	metrics      *metrics.Collector

	mu      sync.Mutex
	entries map[domain.SeriesKey]*seriesEntry
}

type seriesEntry struct {
	mu       sync.Mutex
	samples  map[int64]domain.PriceSample // keyed by UnixNano
	earliest time.Time
	latest   time.Time
}

func NewCache(fetcher HistoryFetcher, opts ...CacheOption) *Cache {
	c := &Cache{
		fetcher:      fetcher,
		gapTolerance: DefaultGapTolerance,
		entries:      make(map[domain.SeriesKey]*seriesEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) GapTolerance() time.Duration {
	return c.gapTolerance
}

// EnsureCovered makes sure the entry for (instanceType, zone) holds samples
// covering [start, end], fetching the whole range from the source when the
// cached range is not good enough.
func (c *Cache) EnsureCovered(ctx context.Context, instanceType, zone string, start, end time.Time) error {
	key := domain.SeriesKey{InstanceType: instanceType, AvailabilityZone: zone}
	logger := zerolog.Ctx(ctx).With().Str("series", key.String()).Logger()

	e := c.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.covers(start, end, c.gapTolerance) {
		c.metrics.SpotCacheLookup(metrics.CacheHit)
		logger.Debug().Msg("spot price history served from cache")
		return nil
	}
	c.metrics.SpotCacheLookup(metrics.CacheMiss)

	fetched, err := c.fetch(ctx, key, start, end)
	if err != nil {
		return err
	}

	e.merge(fetched)
	logger.Debug().
		Int("fetched", len(fetched)).
		Int("cached", len(e.samples)).
		Msg("spot price history fetched")
	return nil
}

// Series returns a sorted copy of the cached samples for (instanceType, zone).
func (c *Cache) Series(instanceType, zone string) []domain.PriceSample {
	key := domain.SeriesKey{InstanceType: instanceType, AvailabilityZone: zone}

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	series := make([]domain.PriceSample, 0, len(e.samples))
	for _, s := range e.samples {
		series = append(series, s)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
	return series
}

func (c *Cache) entry(key domain.SeriesKey) *seriesEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		e = &seriesEntry{samples: make(map[int64]domain.PriceSample)}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) fetch(ctx context.Context, key domain.SeriesKey, start, end time.Time) ([]domain.PriceSample, error) {
	var (
		fetched  []domain.PriceSample
		previous *time.Time
		token    string
	)

	for {
		page, next, err := c.fetcher.FetchSpotPriceHistory(ctx, key.InstanceType, key.AvailabilityZone, start, end, token)
		if err != nil {
			return nil, err
		}
		c.metrics.SpotHistoryPage()

		for _, sample := range page {
			if previous != nil && absDuration(previous.Sub(sample.Timestamp)) > c.gapTolerance {
				return nil, &GapError{
					Key:       key,
					Previous:  *previous,
					Current:   sample.Timestamp,
					Tolerance: c.gapTolerance,
				}
			}
			ts := sample.Timestamp
			previous = &ts
			fetched = append(fetched, sample)
		}

		if next == "" {
			return fetched, nil
		}
		token = next
	}
}

// covers reports whether a re-fetch can be skipped: the newest sample is within
// tolerance of end and the oldest sample precedes start.
func (e *seriesEntry) covers(start, end time.Time, tolerance time.Duration) bool {
	if len(e.samples) == 0 {
		return false
	}
	return end.Sub(e.latest) < tolerance && e.earliest.Before(start)
}

func (e *seriesEntry) merge(samples []domain.PriceSample) {
	for _, s := range samples {
		if len(e.samples) == 0 || s.Timestamp.Before(e.earliest) {
			e.earliest = s.Timestamp
		}
		if len(e.samples) == 0 || s.Timestamp.After(e.latest) {
			e.latest = s.Timestamp
		}
		e.samples[s.Timestamp.UnixNano()] = s
	}
}
