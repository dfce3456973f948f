package spot

import (
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/emr-cost/pkg/models/domain"
)

var (
	ErrPriceSeriesGap = errors.New("spot price series gap exceeds tolerance")
	ErrEmptySeries    = errors.New("no spot price samples")
)

// GapError reports two consecutive samples of one fetch that are further apart
// than the tolerance. It matches both ErrPriceSeriesGap and domain.ErrDataIntegrity.
type GapError struct {
	Key       domain.SeriesKey
	Previous  time.Time
	Current   time.Time
	Tolerance time.Duration
}

func (e *GapError) Error() string {
	return fmt.Sprintf(
		"%s: expecting at most %s between spot price entries, got %s between %s and %s",
		e.Key, e.Tolerance, absDuration(e.Previous.Sub(e.Current)),
		e.Previous.Format(time.RFC3339), e.Current.Format(time.RFC3339),
	)
}

func (e *GapError) Unwrap() []error {
	return []error{ErrPriceSeriesGap, domain.ErrDataIntegrity}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
