package cost

import (
	"context"
	"errors"
	"time"

	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/shopspring/decimal"
)

var ErrInvalidWindow = errors.New("invalid reporting window")

// ClusterSource exposes the EMR topology and instance lifecycle of a cluster.
type ClusterSource interface {
	ListClusters(ctx context.Context, createdAfter, createdBefore time.Time) ([]string, error)
	ClusterAvailabilityZone(ctx context.Context, clusterID string) (string, error)
	ListInstanceGroups(ctx context.Context, clusterID string) ([]domain.InstanceGroup, error)
	ListInstanceFleets(ctx context.Context, clusterID string) ([]domain.InstanceGroup, error)
	// ListInstances returns every instance of the group or fleet, following all pages.
	ListInstances(
		ctx context.Context,
		clusterID string,
		group domain.InstanceGroup,
		kind domain.TopologyKind,
	) ([]domain.Instance, error)
}

// PriceCatalog returns hourly USD list prices by instance type.
type PriceCatalog interface {
	GetOnDemandPrice(instanceType string) (decimal.Decimal, error)
	GetEmrPrice(instanceType string) (decimal.Decimal, error)
}

type SpotPricer interface {
	BilledCost(ctx context.Context, interval domain.BilledInterval) (decimal.Decimal, error)
}

// Calculator computes historical EMR cluster costs.
type Calculator interface {
	// ComputeClusterCost returns the cost breakdown of a cluster, optionally
	// restricted to the [start, end] reporting window.
	ComputeClusterCost(ctx context.Context, clusterID string, start, end *time.Time) (*domain.ClusterCost, error)
	// ComputeTotalCostByDates sums the totals of all clusters created in the window.
	ComputeTotalCostByDates(
		ctx context.Context,
		createdAfter, createdBefore time.Time,
	) (decimal.Decimal, []*domain.ClusterCost, error)
}
