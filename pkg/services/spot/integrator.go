package spot

import (
	"time"

	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/shopspring/decimal"
)

// Integrate returns the amount billed for [start, end] against a spot price
// step function. series must be sorted by timestamp ascending.
//
// Each sample's price holds from its timestamp until the next sample's timestamp;
// the last sample holds indefinitely. Time before the first sample is billed at
// the first sample's price.
func Integrate(series []domain.PriceSample, start, end time.Time) (decimal.Decimal, error) {
	if len(series) == 0 {
		return decimal.Zero, ErrEmptySeries
	}
	if !end.After(start) {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	cursor := start
	for i, sample := range series {
		last := i == len(series)-1
		var next time.Time
		if !last {
			next = series[i+1].Timestamp
			// span ends at or before the cursor
			if !next.After(cursor) {
				continue
			}
		}

		if last || !end.After(next) {
			return total.Add(sample.Price.Mul(domain.Hours(end.Sub(cursor)))), nil
		}

		total = total.Add(sample.Price.Mul(domain.Hours(next.Sub(cursor))))
		cursor = next
	}

	return total, nil
}
