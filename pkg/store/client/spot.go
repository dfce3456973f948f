package client

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/shopspring/decimal"
)

const DefaultProductDescription = "Linux/UNIX (Amazon VPC)"

type SpotPriceAPI interface {
	DescribeSpotPriceHistory(
		ctx context.Context,
		params *ec2.DescribeSpotPriceHistoryInput,
		optFns ...func(*ec2.Options),
	) (*ec2.DescribeSpotPriceHistoryOutput, error)
}

// SpotPriceClient reads spot price history one page at a time.
type SpotPriceClient struct {
	api                SpotPriceAPI
	productDescription string
	caller
}

func NewSpotPriceClient(api SpotPriceAPI, productDescription string, opts ...Option) *SpotPriceClient {
	if productDescription == "" {
		productDescription = DefaultProductDescription
	}
	return &SpotPriceClient{
		api:                api,
		productDescription: productDescription,
		caller:             newCaller(opts),
	}
}

// NewSpotPriceClientFromConfig disables the SDK retryer, see NewEMRClientFromConfig.
func NewSpotPriceClientFromConfig(cfg aws.Config, productDescription string, opts ...Option) *SpotPriceClient {
	api := ec2.NewFromConfig(cfg, func(o *ec2.Options) {
		o.Retryer = aws.NopRetryer{}
	})
	return NewSpotPriceClient(api, productDescription, opts...)
}

func (c *SpotPriceClient) FetchSpotPriceHistory(
	ctx context.Context,
	instanceType, zone string,
	start, end time.Time,
	token string,
) ([]domain.PriceSample, string, error) {
	input := &ec2.DescribeSpotPriceHistoryInput{
		AvailabilityZone:    aws.String(zone),
		InstanceTypes:       []types.InstanceType{types.InstanceType(instanceType)},
		ProductDescriptions: []string{c.productDescription},
		StartTime:           aws.Time(start),
		EndTime:             aws.Time(end),
	}
	if token != "" {
		input.NextToken = aws.String(token)
	}

	var out *ec2.DescribeSpotPriceHistoryOutput
	err := c.call(ctx, "DescribeSpotPriceHistory", func() (err error) {
		out, err = c.api.DescribeSpotPriceHistory(ctx, input)
		return err
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to describe spot price history: %w", err)
	}

	samples := make([]domain.PriceSample, 0, len(out.SpotPriceHistory))
	for _, sp := range out.SpotPriceHistory {
		if sp.Timestamp == nil {
			continue
		}
		price, err := decimal.NewFromString(aws.ToString(sp.SpotPrice))
		if err != nil {
			return nil, "", fmt.Errorf("invalid spot price %q at %s: %w", aws.ToString(sp.SpotPrice), sp.Timestamp, err)
		}
		samples = append(samples, domain.PriceSample{Timestamp: *sp.Timestamp, Price: price})
	}

	return samples, aws.ToString(out.NextToken), nil
}
