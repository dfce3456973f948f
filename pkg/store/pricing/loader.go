package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL = "https://pricing.us-east-1.amazonaws.com"
	indexPath      = "/offers/v1.0/aws/index.json"

	offerEC2 = "AmazonEC2"
	offerEMR = "ElasticMapReduce"
)

type offerIndex struct {
	Offers map[string]struct {
		CurrentRegionIndexURL string `json:"currentRegionIndexUrl"`
	} `json:"offers"`
}

type regionIndex struct {
	Regions map[string]struct {
		CurrentVersionURL string `json:"currentVersionUrl"`
	} `json:"regions"`
}

// offerFile is the regional price list of one service.
type offerFile struct {
	Products map[string]*product `json:"products"`
	Terms    struct {
		OnDemand map[string]map[string]*offerTerm `json:"OnDemand"`
	} `json:"terms"`
}

type product struct {
	Sku        string            `json:"sku"`
	Attributes productAttributes `json:"attributes"`
}

type productAttributes struct {
	InstanceType    string `json:"instanceType"`
	Tenancy         string `json:"tenancy"`
	OperatingSystem string `json:"operatingSystem"`
	Operation       string `json:"operation"`
	CapacityStatus  string `json:"capacitystatus"`
	SoftwareType    string `json:"softwareType"`
}

type offerTerm struct {
	Sku             string               `json:"sku"`
	PriceDimensions map[string]*rateCode `json:"priceDimensions"`
}

type rateCode struct {
	Unit         string `json:"unit"`
	PricePerUnit struct {
		USD string `json:"USD"`
	} `json:"pricePerUnit"`
}

// isLinuxOnDemand selects shared-tenancy Linux instances without pre-installed software.
func isLinuxOnDemand(a productAttributes) bool {
	return a.Tenancy == "Shared" &&
		a.OperatingSystem == "Linux" &&
		a.Operation == "RunInstances" &&
		a.CapacityStatus == "Used"
}

func isEMR(a productAttributes) bool {
	return a.SoftwareType == "EMR"
}

// LoadCatalog reads the public AWS price list for region: the offer index, then
// the region index and current version of the EC2 and EMR offers.
func LoadCatalog(ctx context.Context, httpClient *http.Client, baseURL, region string) (*Catalog, error) {
	logger := zerolog.Ctx(ctx).With().Str("region", region).Logger()
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	l := &loader{client: httpClient, baseURL: strings.TrimRight(baseURL, "/")}

	var index offerIndex
	if err := l.getJSON(ctx, indexPath, &index); err != nil {
		return nil, fmt.Errorf("failed to read price list index: %w", err)
	}

	emrOffer, err := l.regionalOffer(ctx, index, offerEMR, region)
	if err != nil {
		return nil, err
	}
	emr, err := extractPrices(emrOffer, isEMR, false)
	if err != nil {
		return nil, fmt.Errorf("%s price list: %w", offerEMR, err)
	}

	ec2Offer, err := l.regionalOffer(ctx, index, offerEC2, region)
	if err != nil {
		return nil, err
	}
	onDemand, err := extractPrices(ec2Offer, isLinuxOnDemand, true)
	if err != nil {
		return nil, fmt.Errorf("%s price list: %w", offerEC2, err)
	}

	logger.Debug().
		Int("ec2_prices", len(onDemand)).
		Int("emr_prices", len(emr)).
		Msg("price catalog loaded")
	return NewCatalog(region, onDemand, emr), nil
}

type loader struct {
	client  *http.Client
	baseURL string
}

func (l *loader) regionalOffer(ctx context.Context, index offerIndex, offer, region string) (*offerFile, error) {
	entry, ok := index.Offers[offer]
	if !ok || entry.CurrentRegionIndexURL == "" {
		return nil, fmt.Errorf("price list index has no %s offer", offer)
	}

	var regions regionIndex
	if err := l.getJSON(ctx, entry.CurrentRegionIndexURL, &regions); err != nil {
		return nil, fmt.Errorf("failed to read %s region index: %w", offer, err)
	}

	version, ok := regions.Regions[region]
	if !ok || version.CurrentVersionURL == "" {
		return nil, fmt.Errorf("%s is not priced in region %s", offer, region)
	}

	var file offerFile
	if err := l.getJSON(ctx, version.CurrentVersionURL, &file); err != nil {
		return nil, fmt.Errorf("failed to read %s price list for %s: %w", offer, region, err)
	}
	return &file, nil
}

func (l *loader) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// extractPrices maps instance types to the USD price of the single on-demand
// term of every product accepted by filter.
func extractPrices(
	file *offerFile,
	filter func(productAttributes) bool,
	uniqueTypes bool,
) (map[string]decimal.Decimal, error) {
	skus := make([]string, 0, len(file.Products))
	for sku, p := range file.Products {
		if p != nil && p.Attributes.InstanceType != "" && filter(p.Attributes) {
			skus = append(skus, sku)
		}
	}
	sort.Strings(skus)

	prices := make(map[string]decimal.Decimal, len(skus))
	for _, sku := range skus {
		instanceType := file.Products[sku].Attributes.InstanceType

		terms := file.Terms.OnDemand[sku]
		if len(terms) == 0 {
			continue
		}
		if len(terms) > 1 {
			return nil, fmt.Errorf("%w: sku %s has %d on-demand terms", ErrCatalogIntegrity, sku, len(terms))
		}

		var term *offerTerm
		for _, t := range terms {
			term = t
		}
		if term == nil || len(term.PriceDimensions) != 1 {
			return nil, fmt.Errorf("%w: sku %s does not have exactly one price dimension", ErrCatalogIntegrity, sku)
		}

		var rate *rateCode
		for _, r := range term.PriceDimensions {
			rate = r
		}
		if rate == nil {
			return nil, fmt.Errorf("%w: sku %s has an empty price dimension", ErrCatalogIntegrity, sku)
		}
		price, err := decimal.NewFromString(rate.PricePerUnit.USD)
		if err != nil {
			return nil, fmt.Errorf("sku %s: invalid USD price %q: %w", sku, rate.PricePerUnit.USD, err)
		}

		if _, seen := prices[instanceType]; seen && uniqueTypes {
			return nil, fmt.Errorf("%w: instance type %s is priced more than once", ErrCatalogIntegrity, instanceType)
		}
		prices[instanceType] = price
	}
	return prices, nil
}
