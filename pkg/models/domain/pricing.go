package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSample is a spot price observation. The price holds from Timestamp
// until the timestamp of the next sample.
type PriceSample struct {
	Timestamp time.Time
	Price     decimal.Decimal // USD per hour
}

// SeriesKey identifies a spot price series.
type SeriesKey struct {
	InstanceType     string
	AvailabilityZone string
}

func (k SeriesKey) String() string {
	return k.InstanceType + "@" + k.AvailabilityZone
}

// BilledInterval is the wall-clock span an instance is billed for,
// already clipped to the reporting window.
type BilledInterval struct {
	InstanceType     string
	AvailabilityZone string
	Start            time.Time
	End              time.Time
}

func (b BilledInterval) Key() SeriesKey {
	return SeriesKey{InstanceType: b.InstanceType, AvailabilityZone: b.AvailabilityZone}
}

func (b BilledInterval) Duration() time.Duration {
	if b.End.Before(b.Start) {
		return 0
	}
	return b.End.Sub(b.Start)
}

// Hours returns the interval length in hours, pro-rated to the nanosecond.
func (b BilledInterval) Hours() decimal.Decimal {
	return Hours(b.Duration())
}

var nanosPerHour = decimal.NewFromInt(int64(time.Hour))

func Hours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(nanosPerHour)
}
