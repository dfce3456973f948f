package export

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/de-tools/emr-cost/pkg/models/api"
	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	mock.Mock
	body []byte
}

func (m *mockS3) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	if params.Body != nil {
		m.body, _ = io.ReadAll(params.Body)
	}
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func exportedCost() *domain.ClusterCost {
	return &domain.ClusterCost{
		ClusterID:        "j-1",
		AvailabilityZone: "us-east-1a",
		Topology:         domain.TopologyInstanceGroups,
		Breakdown: domain.Breakdown{
			domain.NewBucket(domain.GroupRoleCore, domain.CostTypeEC2): decimal.RequireFromString("15.2"),
			domain.BucketTotal: decimal.RequireFromString("15.2"),
		},
		ComputedAt: time.Date(2024, 3, 1, 12, 30, 5, 0, time.UTC),
	}
}

func TestS3Exporter_Export(t *testing.T) {
	// Given
	s3api := new(mockS3)
	s3api.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "reports" &&
			aws.ToString(in.Key) == "emr-cost/j-1/20240301T123005Z.json" &&
			aws.ToString(in.ContentType) == "application/json"
	})).Return(&s3.PutObjectOutput{}, nil)

	exporter := NewS3Exporter(s3api, "reports", "emr-cost")

	// When
	location, err := exporter.Export(context.Background(), exportedCost())

	// Then
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/emr-cost/j-1/20240301T123005Z.json", location)

	var uploaded api.ClusterCost
	require.NoError(t, json.Unmarshal(s3api.body, &uploaded))
	assert.Equal(t, "j-1", uploaded.ClusterID)
	assert.Equal(t, "15.2", uploaded.Total)
	assert.Equal(t, "15.2", uploaded.Breakdown["CORE.EC2"])
	s3api.AssertExpectations(t)
}

func TestS3Exporter_Key_NoPrefix(t *testing.T) {
	exporter := NewS3Exporter(new(mockS3), "reports", "")

	assert.Equal(t, "j-1/20240301T123005Z.json", exporter.Key(exportedCost()))
}

func TestS3Exporter_Export_UploadError(t *testing.T) {
	s3api := new(mockS3)
	s3api.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	_, err := NewS3Exporter(s3api, "reports", "emr-cost").Export(context.Background(), exportedCost())

	assert.ErrorContains(t, err, "access denied")
	assert.ErrorContains(t, err, "s3://reports/emr-cost/j-1/20240301T123005Z.json")
}
