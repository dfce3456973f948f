package terminal

import (
	"bytes"
	"testing"
	"time"

	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_Handle(t *testing.T) {
	// Given
	var buf bytes.Buffer
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	report := &domain.Report{
		Title:  "EMR Cluster Cost",
		Period: domain.TimePeriod{Start: &start},
		Sections: []domain.ReportSection{{
			Title: "Cluster j-1 (us-east-1a, instance_groups)",
			Details: []domain.ReportDetail{
				{Name: "MASTER.EC2", Amount: decimal.RequireFromString("0.5")},
				{Name: "MASTER.EMR", Amount: decimal.RequireFromString("0.15")},
			},
			Notes: []string{"1 instance(s) skipped for missing data"},
		}},
		TotalAmount: decimal.RequireFromString("0.65"),
		Currency:    "USD",
	}

	// When
	err := NewReporter(&buf).Handle(report)

	// Then
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "EMR Cluster Cost")
	assert.Contains(t, out, "Period: 2024-03-01 00:00 to now")
	assert.Contains(t, out, "Cluster j-1 (us-east-1a, instance_groups)")
	assert.Contains(t, out, "MASTER.EC2")
	assert.Contains(t, out, "0.5000")
	assert.Contains(t, out, "0.1500")
	assert.Contains(t, out, "* 1 instance(s) skipped for missing data")
	assert.Contains(t, out, "Total Amount: USD 0.65")
}

func TestReporter_Handle_NoSections(t *testing.T) {
	var buf bytes.Buffer

	err := NewReporter(&buf).Handle(&domain.Report{Title: "EMR Cost By Creation Date", Currency: "USD"})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Period: cluster start to now")
	assert.Contains(t, buf.String(), "Total Amount: USD 0.00")
}
