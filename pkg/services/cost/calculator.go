package cost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/emr-cost/pkg/metrics"
	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/de-tools/emr-cost/pkg/services/spot"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Option func(*calculator)

// WithClock replaces the time source used as the end of still running instances.
func WithClock(now func() time.Time) Option {
	return func(c *calculator) {
		if now != nil {
			c.now = now
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *calculator) {
		c.metrics = m
	}
}

type calculator struct {
	source  ClusterSource
	prices  PriceCatalog
	pricer  SpotPricer
	metrics *metrics.Collector
	now     func() time.Time
}

func NewCalculator(source ClusterSource, prices PriceCatalog, pricer SpotPricer, opts ...Option) Calculator {
	c := &calculator{
		source: source,
		prices: prices,
		pricer: pricer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *calculator) ComputeClusterCost(
	ctx context.Context,
	clusterID string,
	start, end *time.Time,
) (*domain.ClusterCost, error) {
	if start != nil && end != nil && end.Before(*start) {
		return nil, fmt.Errorf("%w: ends before it starts: %s < %s", ErrInvalidWindow, end, start)
	}

	logger := zerolog.Ctx(ctx).With().Str("cluster_id", clusterID).Logger()
	ctx = logger.WithContext(ctx)

	zone, err := c.source.ClusterAvailabilityZone(ctx, clusterID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve availability zone of cluster %s: %w", clusterID, err)
	}

	topology, err := c.resolveTopology(ctx, clusterID)
	if err != nil {
		return nil, err
	}

	now := c.now()
	agg := NewAggregator()
	skipped := 0

	for _, group := range topology.Groups {
		instances, err := c.source.ListInstances(ctx, clusterID, group, topology.Kind)
		if err != nil {
			return nil, fmt.Errorf("failed to list instances of %s %s: %w", topology.Kind, group.ID, err)
		}

		for _, instance := range instances {
			instanceCost, ok, err := c.instanceCost(ctx, zone, group, instance, start, end, now)
			if err != nil {
				return nil, fmt.Errorf("cluster %s instance %s: %w", clusterID, instance.ID, err)
			}
			if !ok {
				skipped++
				continue
			}
			if err := agg.AddInstance(group.Role, instanceCost); err != nil {
				return nil, err
			}
		}
	}

	result := &domain.ClusterCost{
		ClusterID:        clusterID,
		AvailabilityZone: zone,
		Start:            start,
		End:              end,
		Topology:         topology.Kind,
		Breakdown:        agg.Result(),
		SkippedInstances: skipped,
		ComputedAt:       now,
	}

	logger.Debug().
		Str("topology", string(topology.Kind)).
		Str("total", result.Breakdown.Total().StringFixed(4)).
		Int("skipped", skipped).
		Msg("cluster cost computed")
	return result, nil
}

func (c *calculator) ComputeTotalCostByDates(
	ctx context.Context,
	createdAfter, createdBefore time.Time,
) (decimal.Decimal, []*domain.ClusterCost, error) {
	if createdBefore.Before(createdAfter) {
		return decimal.Zero, nil, fmt.Errorf("%w: created_before %s < created_after %s",
			ErrInvalidWindow, createdBefore, createdAfter)
	}
	logger := zerolog.Ctx(ctx)

	clusterIDs, err := c.source.ListClusters(ctx, createdAfter, createdBefore)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("failed to list clusters: %w", err)
	}

	total := decimal.Zero
	costs := make([]*domain.ClusterCost, 0, len(clusterIDs))
	for _, id := range clusterIDs {
		clusterCost, err := c.ComputeClusterCost(ctx, id, nil, nil)
		if err != nil {
			return decimal.Zero, nil, err
		}
		if clusterCost.Breakdown.Total().IsZero() {
			logger.Info().Msgf("Cluster %s has no cost associated with it", id)
		}
		total = total.Add(clusterCost.Breakdown.Total())
		costs = append(costs, clusterCost)
	}

	return total, costs, nil
}

// resolveTopology lists instance groups and falls back to instance fleets when
// the groups cannot be listed.
func (c *calculator) resolveTopology(ctx context.Context, clusterID string) (domain.Topology, error) {
	groups, groupsErr := c.source.ListInstanceGroups(ctx, clusterID)
	if groupsErr == nil {
		return domain.Topology{Kind: domain.TopologyInstanceGroups, Groups: groups}, nil
	}

	zerolog.Ctx(ctx).Debug().Err(groupsErr).Msg("instance groups unavailable, trying instance fleets")

	fleets, fleetsErr := c.source.ListInstanceFleets(ctx, clusterID)
	if fleetsErr != nil {
		return domain.Topology{}, fmt.Errorf(
			"failed to resolve topology of cluster %s: %w",
			clusterID,
			errors.Join(groupsErr, fleetsErr),
		)
	}
	return domain.Topology{Kind: domain.TopologyInstanceFleets, Groups: fleets}, nil
}

// instanceCost prices one instance over its clipped lifetime. ok is false when
// the instance contributes nothing and has to be skipped.
func (c *calculator) instanceCost(
	ctx context.Context,
	zone string,
	group domain.InstanceGroup,
	instance domain.Instance,
	start, end *time.Time,
	now time.Time,
) (domain.InstanceCost, bool, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("instance_id", instance.ID).
		Str("instance_type", instance.InstanceType).
		Logger()

	if instance.CreationTime == nil {
		c.metrics.InstanceSkipped(metrics.SkipNoLifecycle)
		logger.Warn().Msg("instance has no creation time, skipping")
		return domain.InstanceCost{}, false, nil
	}

	interval := BilledInterval(instance, zone, start, end, now)
	if interval.Duration() == 0 {
		c.metrics.InstanceSkipped(metrics.SkipEmptyWindow)
		logger.Debug().Msg("instance did not run inside the reporting window")
		return domain.InstanceCost{}, false, nil
	}
	hours := interval.Hours()

	var ec2Cost decimal.Decimal
	switch instance.Market {
	case domain.MarketSpot:
		spotCost, err := c.pricer.BilledCost(ctx, interval)
		if errors.Is(err, spot.ErrEmptySeries) {
			c.metrics.InstanceSkipped(metrics.SkipNoSpotPrice)
			logger.Warn().Err(err).Msg("no spot price history, skipping instance")
			return domain.InstanceCost{}, false, nil
		}
		if err != nil {
			return domain.InstanceCost{}, false, err
		}
		ec2Cost = spotCost
	case domain.MarketOnDemand:
		price, err := c.prices.GetOnDemandPrice(instance.InstanceType)
		if err != nil {
			return domain.InstanceCost{}, false, err
		}
		ec2Cost = price.Mul(hours)
	default:
		c.metrics.InstanceSkipped(metrics.SkipUnknownMarket)
		logger.Warn().Str("market", string(instance.Market)).Msg("unknown market type, skipping instance")
		return domain.InstanceCost{}, false, nil
	}

	emrPrice, err := c.prices.GetEmrPrice(instance.InstanceType)
	if err != nil {
		return domain.InstanceCost{}, false, err
	}

	return domain.InstanceCost{
		EC2: ec2Cost,
		EMR: EMRCost(emrPrice, hours),
		EBS: EBSCost(group.EbsVolumes, hours),
	}, true, nil
}

// BilledInterval clips the lifetime of instance to the optional [start, end]
// window. Instances without an end time are billed until now.
func BilledInterval(instance domain.Instance, zone string, start, end *time.Time, now time.Time) domain.BilledInterval {
	interval := domain.BilledInterval{
		InstanceType:     instance.InstanceType,
		AvailabilityZone: zone,
		End:              now,
	}
	if instance.CreationTime != nil {
		interval.Start = *instance.CreationTime
	}
	if instance.EndTime != nil {
		interval.End = *instance.EndTime
	}

	if start != nil && interval.Start.Before(*start) {
		interval.Start = *start
	}
	if end != nil && interval.End.After(*end) {
		interval.End = *end
	}
	return interval
}
