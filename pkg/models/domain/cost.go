package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

type CostType string

const (
	CostTypeEC2 CostType = "EC2" // compute, on-demand list price or integrated spot price
	CostTypeEMR CostType = "EMR" // managed software markup
	CostTypeEBS CostType = "EBS" // attached storage
)

var costTypes = []CostType{CostTypeEC2, CostTypeEMR, CostTypeEBS}

// Bucket names a cost accumulator: "{role}.{type}" or TOTAL.
type Bucket string

const BucketTotal Bucket = "TOTAL"

func NewBucket(role GroupRole, costType CostType) Bucket {
	return Bucket(string(role) + "." + string(costType))
}

// AllBuckets returns every valid bucket, TOTAL last.
func AllBuckets() []Bucket {
	buckets := make([]Bucket, 0, len(groupRoles)*len(costTypes)+1)
	for _, r := range groupRoles {
		for _, t := range costTypes {
			buckets = append(buckets, NewBucket(r, t))
		}
	}
	return append(buckets, BucketTotal)
}

// InstanceCost holds what a single instance contributed to each cost type.
type InstanceCost struct {
	EC2 decimal.Decimal
	EMR decimal.Decimal
	EBS decimal.Decimal
}

func (c InstanceCost) Total() decimal.Decimal {
	return c.EC2.Add(c.EMR).Add(c.EBS)
}

// Breakdown maps bucket names to USD amounts.
type Breakdown map[Bucket]decimal.Decimal

func (b Breakdown) Total() decimal.Decimal {
	return b[BucketTotal]
}

// SortedBuckets lists the buckets present in b in role/type order with TOTAL last.
func (b Breakdown) SortedBuckets() []Bucket {
	order := make(map[Bucket]int)
	for i, bucket := range AllBuckets() {
		order[bucket] = i
	}
	keys := make([]Bucket, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return order[keys[i]] < order[keys[j]]
	})
	return keys
}

