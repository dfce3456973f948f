package pricing

import (
	"errors"
	"fmt"

	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrCatalogIntegrity marks a price list that cannot be trusted: a SKU with
	// several on-demand terms or price dimensions, or an instance type priced twice.
	ErrCatalogIntegrity = fmt.Errorf("price catalog integrity: %w", domain.ErrDataIntegrity)
	ErrPriceNotFound    = errors.New("price not found")
)

// Catalog holds the hourly USD on-demand EC2 and EMR prices of one region.
type Catalog struct {
	region   string
	onDemand map[string]decimal.Decimal
	emr      map[string]decimal.Decimal
}

func NewCatalog(region string, onDemand, emr map[string]decimal.Decimal) *Catalog {
	if onDemand == nil {
		onDemand = make(map[string]decimal.Decimal)
	}
	if emr == nil {
		emr = make(map[string]decimal.Decimal)
	}
	return &Catalog{region: region, onDemand: onDemand, emr: emr}
}

func (c *Catalog) Region() string {
	return c.region
}

func (c *Catalog) GetOnDemandPrice(instanceType string) (decimal.Decimal, error) {
	price, ok := c.onDemand[instanceType]
	if !ok {
		return decimal.Zero, fmt.Errorf("on-demand price for %s in %s: %w", instanceType, c.region, ErrPriceNotFound)
	}
	return price, nil
}

func (c *Catalog) GetEmrPrice(instanceType string) (decimal.Decimal, error) {
	price, ok := c.emr[instanceType]
	if !ok {
		return decimal.Zero, fmt.Errorf("EMR price for %s in %s: %w", instanceType, c.region, ErrPriceNotFound)
	}
	return price, nil
}

// Size returns the number of priced instance types per catalog.
func (c *Catalog) Size() (onDemand, emr int) {
	return len(c.onDemand), len(c.emr)
}
