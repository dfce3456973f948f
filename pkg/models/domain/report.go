package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report represents a rendered cost analysis
type Report struct {
	Title       string
	Period      TimePeriod
	Sections    []ReportSection
	TotalAmount decimal.Decimal
	Currency    string
}

// TimePeriod represents the reporting window; nil bounds mean unbounded
type TimePeriod struct {
	Start *time.Time
	End   *time.Time
}

// ReportSection groups the buckets of one cluster
type ReportSection struct {
	Title   string
	Details []ReportDetail
	Notes   []string
}

// ReportDetail is a single bucket line
type ReportDetail struct {
	Name   string
	Amount decimal.Decimal
}
