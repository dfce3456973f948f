package cost

import (
	"fmt"

	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/shopspring/decimal"
)

var (
	ebsPricePerGBMonth = decimal.RequireFromString("0.10")
	hoursPerMonth      = decimal.NewFromInt(24 * 30)
)

// Aggregator accumulates instance costs into "{role}.{type}" buckets and TOTAL.
type Aggregator struct {
	valid  map[domain.Bucket]struct{}
	totals map[domain.Bucket]decimal.Decimal
}

func NewAggregator() *Aggregator {
	valid := make(map[domain.Bucket]struct{})
	for _, b := range domain.AllBuckets() {
		valid[b] = struct{}{}
	}
	return &Aggregator{
		valid:  valid,
		totals: map[domain.Bucket]decimal.Decimal{domain.BucketTotal: decimal.Zero},
	}
}

// Add adds amount to the role/type bucket and to TOTAL.
func (a *Aggregator) Add(role domain.GroupRole, costType domain.CostType, amount decimal.Decimal) error {
	bucket := domain.NewBucket(role, costType)
	if _, ok := a.valid[bucket]; !ok {
		return fmt.Errorf("unknown cost bucket %q", bucket)
	}

	a.totals[bucket] = a.totals[bucket].Add(amount)
	a.totals[domain.BucketTotal] = a.totals[domain.BucketTotal].Add(amount)
	return nil
}

func (a *Aggregator) AddInstance(role domain.GroupRole, c domain.InstanceCost) error {
	for _, part := range []struct {
		costType domain.CostType
		amount   decimal.Decimal
	}{
		{domain.CostTypeEC2, c.EC2},
		{domain.CostTypeEMR, c.EMR},
		{domain.CostTypeEBS, c.EBS},
	} {
		if err := a.Add(role, part.costType, part.amount); err != nil {
			return err
		}
	}
	return nil
}

// Result returns a copy of the touched buckets. TOTAL is always present.
func (a *Aggregator) Result() domain.Breakdown {
	out := make(domain.Breakdown, len(a.totals))
	for k, v := range a.totals {
		out[k] = v
	}
	return out
}

// EBSCost bills every attached volume at 0.10 USD per GB-month, with a month of 720 hours.
func EBSCost(volumes []domain.EbsVolumeSpec, hours decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range volumes {
		size := decimal.NewFromInt(int64(v.SizeGB))
		total = total.Add(size.Mul(ebsPricePerGBMonth).Mul(hours).Div(hoursPerMonth))
	}
	return total
}

func EMRCost(unitPrice, hours decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(hours)
}
