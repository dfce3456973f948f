package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/emr"
	"github.com/aws/aws-sdk-go-v2/service/emr/types"
	"github.com/aws/smithy-go"
	"github.com/de-tools/emr-cost/pkg/metrics"
	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/de-tools/emr-cost/pkg/services/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEMR struct {
	mock.Mock
}

func (m *mockEMR) ListClusters(
	ctx context.Context,
	params *emr.ListClustersInput,
	_ ...func(*emr.Options),
) (*emr.ListClustersOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*emr.ListClustersOutput), args.Error(1)
}

func (m *mockEMR) DescribeCluster(
	ctx context.Context,
	params *emr.DescribeClusterInput,
	_ ...func(*emr.Options),
) (*emr.DescribeClusterOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*emr.DescribeClusterOutput), args.Error(1)
}

func (m *mockEMR) ListInstanceGroups(
	ctx context.Context,
	params *emr.ListInstanceGroupsInput,
	_ ...func(*emr.Options),
) (*emr.ListInstanceGroupsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*emr.ListInstanceGroupsOutput), args.Error(1)
}

func (m *mockEMR) ListInstanceFleets(
	ctx context.Context,
	params *emr.ListInstanceFleetsInput,
	_ ...func(*emr.Options),
) (*emr.ListInstanceFleetsOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*emr.ListInstanceFleetsOutput), args.Error(1)
}

func (m *mockEMR) ListInstances(
	ctx context.Context,
	params *emr.ListInstancesInput,
	_ ...func(*emr.Options),
) (*emr.ListInstancesOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*emr.ListInstancesOutput), args.Error(1)
}

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// fastRetry retries server faults without waiting.
func fastRetry(attempts int) Option {
	return WithRetryPolicy(retry.Policy{MaxAttempts: attempts, Retryable: retry.IsServerError})
}

func serverFault() error {
	return &smithy.GenericAPIError{Code: "InternalServerError", Message: "try again", Fault: smithy.FaultServer}
}

func TestEMRClient_ListClusters_FollowsMarkers(t *testing.T) {
	// Given
	api := new(mockEMR)
	after, before := t0, t0.Add(24*time.Hour)

	api.On("ListClusters", mock.Anything, mock.MatchedBy(func(in *emr.ListClustersInput) bool {
		return in.Marker == nil && in.CreatedAfter.Equal(after) && in.CreatedBefore.Equal(before)
	})).Return(&emr.ListClustersOutput{
		Clusters: []types.ClusterSummary{{Id: aws.String("j-1")}, {Id: aws.String("j-2")}},
		Marker:   aws.String("m1"),
	}, nil).Once()
	api.On("ListClusters", mock.Anything, mock.MatchedBy(func(in *emr.ListClustersInput) bool {
		return aws.ToString(in.Marker) == "m1"
	})).Return(&emr.ListClustersOutput{
		Clusters: []types.ClusterSummary{{Id: aws.String("j-3")}},
	}, nil).Once()

	// When
	ids, err := NewEMRClient(api).ListClusters(context.Background(), after, before)

	// Then
	require.NoError(t, err)
	assert.Equal(t, []string{"j-1", "j-2", "j-3"}, ids)
	api.AssertExpectations(t)
}

func TestEMRClient_ClusterAvailabilityZone(t *testing.T) {
	tests := []struct {
		name    string
		out     *emr.DescribeClusterOutput
		want    string
		wantErr bool
	}{
		{
			name: "zone present",
			out: &emr.DescribeClusterOutput{Cluster: &types.Cluster{
				Ec2InstanceAttributes: &types.Ec2InstanceAttributes{Ec2AvailabilityZone: aws.String("eu-west-1b")},
			}},
			want: "eu-west-1b",
		},
		{
			name:    "no instance attributes",
			out:     &emr.DescribeClusterOutput{Cluster: &types.Cluster{}},
			wantErr: true,
		},
		{
			name: "empty zone",
			out: &emr.DescribeClusterOutput{Cluster: &types.Cluster{
				Ec2InstanceAttributes: &types.Ec2InstanceAttributes{},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(mockEMR)
			api.On("DescribeCluster", mock.Anything, &emr.DescribeClusterInput{ClusterId: aws.String("j-1")}).
				Return(tt.out, nil)

			zone, err := NewEMRClient(api).ClusterAvailabilityZone(context.Background(), "j-1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, zone)
		})
	}
}

func TestEMRClient_ClusterAvailabilityZone_RetriesServerFaults(t *testing.T) {
	api := new(mockEMR)
	api.On("DescribeCluster", mock.Anything, mock.Anything).Return(nil, serverFault()).Twice()
	api.On("DescribeCluster", mock.Anything, mock.Anything).Return(&emr.DescribeClusterOutput{Cluster: &types.Cluster{
		Ec2InstanceAttributes: &types.Ec2InstanceAttributes{Ec2AvailabilityZone: aws.String("us-east-1a")},
	}}, nil).Once()

	zone, err := NewEMRClient(api, fastRetry(3), WithMetrics(metrics.NewCollector())).
		ClusterAvailabilityZone(context.Background(), "j-1")

	require.NoError(t, err)
	assert.Equal(t, "us-east-1a", zone)
	api.AssertNumberOfCalls(t, "DescribeCluster", 3)
}

func TestEMRClient_ClusterAvailabilityZone_ClientFaultNotRetried(t *testing.T) {
	api := new(mockEMR)
	clientErr := &smithy.GenericAPIError{Code: "InvalidRequestException", Message: "no such cluster", Fault: smithy.FaultClient}
	api.On("DescribeCluster", mock.Anything, mock.Anything).Return(nil, clientErr)

	_, err := NewEMRClient(api, fastRetry(3)).ClusterAvailabilityZone(context.Background(), "j-missing")

	var apiErr smithy.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "InvalidRequestException", apiErr.ErrorCode())
	api.AssertNumberOfCalls(t, "DescribeCluster", 1)
}

func TestEMRClient_ListInstanceGroups(t *testing.T) {
	api := new(mockEMR)
	api.On("ListInstanceGroups", mock.Anything, mock.Anything).Return(&emr.ListInstanceGroupsOutput{
		InstanceGroups: []types.InstanceGroup{
			{
				Id:                aws.String("ig-1"),
				InstanceType:      aws.String("m5.xlarge"),
				InstanceGroupType: types.InstanceGroupTypeMaster,
			},
			{
				Id:                aws.String("ig-2"),
				InstanceType:      aws.String("r5.2xlarge"),
				InstanceGroupType: types.InstanceGroupTypeCore,
				EbsBlockDevices: []types.EbsBlockDevice{
					{Device: aws.String("/dev/sdb"), VolumeSpecification: &types.VolumeSpecification{
						SizeInGB: aws.Int32(64), VolumeType: aws.String("gp2"),
					}},
					{Device: aws.String("/dev/sdc"), VolumeSpecification: &types.VolumeSpecification{
						SizeInGB: aws.Int32(64), VolumeType: aws.String("gp2"),
					}},
				},
			},
		},
	}, nil).Once()

	groups, err := NewEMRClient(api).ListInstanceGroups(context.Background(), "j-1")

	require.NoError(t, err)
	assert.Equal(t, []domain.InstanceGroup{
		{ID: "ig-1", InstanceType: "m5.xlarge", Role: domain.GroupRoleMaster},
		{
			ID:           "ig-2",
			InstanceType: "r5.2xlarge",
			Role:         domain.GroupRoleCore,
			EbsVolumes: []domain.EbsVolumeSpec{
				{SizeGB: 64, VolumeType: "gp2"},
				{SizeGB: 64, VolumeType: "gp2"},
			},
		},
	}, groups)
}

func TestEMRClient_ListInstanceGroups_FleetClusterErrors(t *testing.T) {
	api := new(mockEMR)
	validation := &smithy.GenericAPIError{
		Code:    "InvalidRequestException",
		Message: "Instance groups are not supported for clusters with instance fleets",
		Fault:   smithy.FaultClient,
	}
	api.On("ListInstanceGroups", mock.Anything, mock.Anything).Return(nil, validation)

	_, err := NewEMRClient(api).ListInstanceGroups(context.Background(), "j-1")

	assert.ErrorIs(t, err, validation)
}

func TestEMRClient_ListInstanceFleets(t *testing.T) {
	api := new(mockEMR)
	api.On("ListInstanceFleets", mock.Anything, mock.Anything).Return(&emr.ListInstanceFleetsOutput{
		InstanceFleets: []types.InstanceFleet{
			{
				Id:                aws.String("if-1"),
				InstanceFleetType: types.InstanceFleetTypeTask,
				InstanceTypeSpecifications: []types.InstanceTypeSpecification{
					{
						InstanceType: aws.String("c5.2xlarge"),
						EbsBlockDevices: []types.EbsBlockDevice{{VolumeSpecification: &types.VolumeSpecification{
							SizeInGB: aws.Int32(32), VolumeType: aws.String("gp3"),
						}}},
					},
					{InstanceType: aws.String("c5.4xlarge")},
				},
			},
		},
	}, nil).Once()

	fleets, err := NewEMRClient(api).ListInstanceFleets(context.Background(), "j-1")

	require.NoError(t, err)
	require.Len(t, fleets, 1)
	assert.Equal(t, "if-1", fleets[0].ID)
	assert.Equal(t, "c5.2xlarge", fleets[0].InstanceType)
	assert.Equal(t, domain.GroupRoleTask, fleets[0].Role)
	assert.Equal(t, []domain.EbsVolumeSpec{{SizeGB: 32, VolumeType: "gp3"}}, fleets[0].EbsVolumes)
}

func TestEMRClient_ListInstanceFleets_NoSpecifications(t *testing.T) {
	api := new(mockEMR)
	api.On("ListInstanceFleets", mock.Anything, mock.Anything).Return(&emr.ListInstanceFleetsOutput{
		InstanceFleets: []types.InstanceFleet{{Id: aws.String("if-1"), InstanceFleetType: types.InstanceFleetTypeCore}},
	}, nil)

	_, err := NewEMRClient(api).ListInstanceFleets(context.Background(), "j-1")

	assert.ErrorContains(t, err, "if-1")
}

func TestEMRClient_ListInstances(t *testing.T) {
	created, ended := t0, t0.Add(3*time.Hour)
	group := domain.InstanceGroup{ID: "ig-2", InstanceType: "r5.2xlarge", Role: domain.GroupRoleCore}

	t.Run("instance groups use the group id and follow markers", func(t *testing.T) {
		api := new(mockEMR)
		api.On("ListInstances", mock.Anything, mock.MatchedBy(func(in *emr.ListInstancesInput) bool {
			return aws.ToString(in.InstanceGroupId) == "ig-2" && in.InstanceFleetId == nil && in.Marker == nil
		})).Return(&emr.ListInstancesOutput{
			Instances: []types.Instance{{
				Id:            aws.String("ci-1"),
				Ec2InstanceId: aws.String("i-0abc"),
				InstanceType:  aws.String("r5.2xlarge"),
				Market:        types.MarketTypeSpot,
				Status: &types.InstanceStatus{Timeline: &types.InstanceTimeline{
					CreationDateTime: &created,
					EndDateTime:      &ended,
				}},
				EbsVolumes: []types.EbsVolume{{Device: aws.String("/dev/sdb"), VolumeId: aws.String("vol-1")}},
			}},
			Marker: aws.String("next"),
		}, nil).Once()
		api.On("ListInstances", mock.Anything, mock.MatchedBy(func(in *emr.ListInstancesInput) bool {
			return aws.ToString(in.Marker) == "next"
		})).Return(&emr.ListInstancesOutput{
			Instances: []types.Instance{{
				Id:           aws.String("ci-2"),
				InstanceType: aws.String("r5.2xlarge"),
				Market:       types.MarketTypeOnDemand,
				Status: &types.InstanceStatus{Timeline: &types.InstanceTimeline{
					CreationDateTime: &created,
				}},
			}},
		}, nil).Once()

		instances, err := NewEMRClient(api).ListInstances(context.Background(), "j-1", group, domain.TopologyInstanceGroups)

		require.NoError(t, err)
		require.Len(t, instances, 2)
		assert.Equal(t, domain.Instance{
			ID:           "i-0abc",
			InstanceType: "r5.2xlarge",
			Market:       domain.MarketSpot,
			CreationTime: &created,
			EndTime:      &ended,
			EbsVolumeIDs: []string{"vol-1"},
		}, instances[0])
		assert.Equal(t, "ci-2", instances[1].ID)
		assert.Equal(t, domain.MarketOnDemand, instances[1].Market)
		assert.Nil(t, instances[1].EndTime)
		api.AssertExpectations(t)
	})

	t.Run("instance fleets use the fleet id", func(t *testing.T) {
		api := new(mockEMR)
		api.On("ListInstances", mock.Anything, mock.MatchedBy(func(in *emr.ListInstancesInput) bool {
			return aws.ToString(in.InstanceFleetId) == "ig-2" && in.InstanceGroupId == nil
		})).Return(&emr.ListInstancesOutput{}, nil).Once()

		instances, err := NewEMRClient(api).ListInstances(context.Background(), "j-1", group, domain.TopologyInstanceFleets)

		require.NoError(t, err)
		assert.Empty(t, instances)
		api.AssertExpectations(t)
	})

	t.Run("unknown topology", func(t *testing.T) {
		_, err := NewEMRClient(new(mockEMR)).ListInstances(context.Background(), "j-1", group, domain.TopologyKind("nodes"))
		assert.Error(t, err)
	})

	t.Run("retries are exhausted", func(t *testing.T) {
		api := new(mockEMR)
		api.On("ListInstances", mock.Anything, mock.Anything).Return(nil, serverFault())

		_, err := NewEMRClient(api, fastRetry(2)).ListInstances(context.Background(), "j-1", group, domain.TopologyInstanceGroups)

		var apiErr smithy.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, smithy.FaultServer, apiErr.ErrorFault())
		api.AssertNumberOfCalls(t, "ListInstances", 2)
	})
}

func TestNewEMRClientFromConfig_DisablesSDKRetries(t *testing.T) {
	c := NewEMRClientFromConfig(aws.Config{Region: "us-east-1"})

	sdk, ok := c.api.(*emr.Client)
	require.True(t, ok)
	assert.IsType(t, aws.NopRetryer{}, sdk.Options().Retryer)
}
