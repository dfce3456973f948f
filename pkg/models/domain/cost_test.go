package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllBuckets(t *testing.T) {
	buckets := AllBuckets()

	require.Len(t, buckets, 10)
	assert.Equal(t, Bucket("MASTER.EC2"), buckets[0])
	assert.Equal(t, Bucket("TASK.EBS"), buckets[8])
	assert.Equal(t, BucketTotal, buckets[9])
}

func TestBreakdown_SortedBuckets(t *testing.T) {
	b := Breakdown{
		BucketTotal:                             decimal.RequireFromString("3"),
		NewBucket(GroupRoleTask, CostTypeEC2):   decimal.RequireFromString("1"),
		NewBucket(GroupRoleMaster, CostTypeEMR): decimal.RequireFromString("1"),
		NewBucket(GroupRoleCore, CostTypeEBS):   decimal.RequireFromString("1"),
	}

	assert.Equal(t, []Bucket{"MASTER.EMR", "CORE.EBS", "TASK.EC2", "TOTAL"}, b.SortedBuckets())
	assert.Equal(t, "3", b.Total().String())
}

func TestInstanceCost_Total(t *testing.T) {
	c := InstanceCost{
		EC2: decimal.RequireFromString("0.192"),
		EMR: decimal.RequireFromString("0.048"),
		EBS: decimal.RequireFromString("0.01"),
	}

	assert.Equal(t, "0.25", c.Total().String())
}

func TestParseGroupRole(t *testing.T) {
	role, err := ParseGroupRole("CORE")
	require.NoError(t, err)
	assert.Equal(t, GroupRoleCore, role)

	_, err = ParseGroupRole("core")
	assert.ErrorContains(t, err, `unknown group role "core"`)
}

func TestBilledInterval_Hours(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		interval BilledInterval
		want     string
	}{
		{"whole hours", BilledInterval{Start: start, End: start.Add(2 * time.Hour)}, "2"},
		{"pro-rated", BilledInterval{Start: start, End: start.Add(90 * time.Minute)}, "1.5"},
		{"empty", BilledInterval{Start: start, End: start}, "0"},
		{"inverted", BilledInterval{Start: start, End: start.Add(-time.Hour)}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.interval.Hours().String())
		})
	}
}
