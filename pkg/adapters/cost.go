package adapters

import (
	"fmt"

	"github.com/de-tools/emr-cost/pkg/models/api"
	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/de-tools/emr-cost/pkg/models/store"
	"github.com/shopspring/decimal"
)

const Currency = "USD"

func MapClusterCostDomainToApi(cost domain.ClusterCost) api.ClusterCost {
	breakdown := make(map[string]string, len(cost.Breakdown))
	for bucket, amount := range cost.Breakdown {
		breakdown[string(bucket)] = amount.String()
	}

	return api.ClusterCost{
		ClusterID:        cost.ClusterID,
		AvailabilityZone: cost.AvailabilityZone,
		Topology:         string(cost.Topology),
		WindowStart:      cost.Start,
		WindowEnd:        cost.End,
		Breakdown:        breakdown,
		Total:            cost.Breakdown.Total().String(),
		Currency:         Currency,
		SkippedInstances: cost.SkippedInstances,
		ComputedAt:       cost.ComputedAt,
	}
}

func MapTotalCostDomainToApi(
	total decimal.Decimal,
	costs []*domain.ClusterCost,
	period domain.TimePeriod,
) api.TotalCost {
	out := api.TotalCost{
		Total:    total.String(),
		Currency: Currency,
		Clusters: make([]api.ClusterCost, 0, len(costs)),
	}
	if period.Start != nil {
		out.CreatedAfter = *period.Start
	}
	if period.End != nil {
		out.CreatedBefore = *period.End
	}
	for _, c := range costs {
		out.Clusters = append(out.Clusters, MapClusterCostDomainToApi(*c))
	}
	return out
}

// MapClusterCostDomainToStoreRecords flattens the breakdown into one record
// per bucket, in bucket order. Record IDs are left to the store.
func MapClusterCostDomainToStoreRecords(cost domain.ClusterCost, runID string) []store.CostRecord {
	records := make([]store.CostRecord, 0, len(cost.Breakdown))
	for _, bucket := range cost.Breakdown.SortedBuckets() {
		records = append(records, store.CostRecord{
			RunID:       runID,
			ClusterID:   cost.ClusterID,
			Bucket:      string(bucket),
			Amount:      cost.Breakdown[bucket].String(),
			Currency:    Currency,
			WindowStart: cost.Start,
			WindowEnd:   cost.End,
			ComputedAt:  cost.ComputedAt,
		})
	}
	return records
}

func MapClusterCostDomainToReport(cost domain.ClusterCost) domain.Report {
	section := domain.ReportSection{
		Title: fmt.Sprintf("Cluster %s (%s, %s)", cost.ClusterID, cost.AvailabilityZone, cost.Topology),
	}
	for _, bucket := range cost.Breakdown.SortedBuckets() {
		if bucket == domain.BucketTotal {
			continue
		}
		section.Details = append(section.Details, domain.ReportDetail{
			Name:   string(bucket),
			Amount: cost.Breakdown[bucket],
		})
	}
	if cost.SkippedInstances > 0 {
		section.Notes = append(section.Notes,
			fmt.Sprintf("%d instance(s) skipped for missing data", cost.SkippedInstances))
	}

	return domain.Report{
		Title:       "EMR Cluster Cost",
		Period:      domain.TimePeriod{Start: cost.Start, End: cost.End},
		Sections:    []domain.ReportSection{section},
		TotalAmount: cost.Breakdown.Total(),
		Currency:    Currency,
	}
}

func MapTotalCostDomainToReport(
	total decimal.Decimal,
	costs []*domain.ClusterCost,
	period domain.TimePeriod,
) domain.Report {
	report := domain.Report{
		Title:       "EMR Cost By Creation Date",
		Period:      period,
		TotalAmount: total,
		Currency:    Currency,
	}
	for _, c := range costs {
		clusterReport := MapClusterCostDomainToReport(*c)
		section := clusterReport.Sections[0]
		section.Details = append(section.Details, domain.ReportDetail{
			Name:   string(domain.BucketTotal),
			Amount: c.Breakdown.Total(),
		})
		if c.Breakdown.Total().IsZero() {
			section.Notes = append(section.Notes, "no cost associated with this cluster")
		}
		report.Sections = append(report.Sections, section)
	}
	return report
}

func MapCostRecordStoreToApi(record store.CostRecord) api.CostRecord {
	return api.CostRecord{
		RunID:       record.RunID,
		ClusterID:   record.ClusterID,
		Bucket:      record.Bucket,
		Amount:      record.Amount,
		Currency:    record.Currency,
		WindowStart: record.WindowStart,
		WindowEnd:   record.WindowEnd,
		ComputedAt:  record.ComputedAt,
	}
}
