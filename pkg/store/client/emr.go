package client

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/emr"
	"github.com/aws/aws-sdk-go-v2/service/emr/types"
	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/rs/zerolog"
)

// EMRAPI is the subset of the EMR client used to read cluster topology.
type EMRAPI interface {
	ListClusters(ctx context.Context, params *emr.ListClustersInput, optFns ...func(*emr.Options)) (*emr.ListClustersOutput, error)
	DescribeCluster(ctx context.Context, params *emr.DescribeClusterInput, optFns ...func(*emr.Options)) (*emr.DescribeClusterOutput, error)
	ListInstanceGroups(ctx context.Context, params *emr.ListInstanceGroupsInput, optFns ...func(*emr.Options)) (*emr.ListInstanceGroupsOutput, error)
	ListInstanceFleets(ctx context.Context, params *emr.ListInstanceFleetsInput, optFns ...func(*emr.Options)) (*emr.ListInstanceFleetsOutput, error)
	ListInstances(ctx context.Context, params *emr.ListInstancesInput, optFns ...func(*emr.Options)) (*emr.ListInstancesOutput, error)
}

type EMRClient struct {
	api EMRAPI
	caller
}

func NewEMRClient(api EMRAPI, opts ...Option) *EMRClient {
	return &EMRClient{api: api, caller: newCaller(opts)}
}

// NewEMRClientFromConfig builds the SDK client without its own retryer so that
// the retry policy of the caller is the only one applied.
func NewEMRClientFromConfig(cfg aws.Config, opts ...Option) *EMRClient {
	api := emr.NewFromConfig(cfg, func(o *emr.Options) {
		o.Retryer = aws.NopRetryer{}
	})
	return NewEMRClient(api, opts...)
}

func (c *EMRClient) ListClusters(ctx context.Context, createdAfter, createdBefore time.Time) ([]string, error) {
	paginator := emr.NewListClustersPaginator(c.api, &emr.ListClustersInput{
		CreatedAfter:  aws.Time(createdAfter),
		CreatedBefore: aws.Time(createdBefore),
	})

	var ids []string
	for paginator.HasMorePages() {
		var page *emr.ListClustersOutput
		err := c.call(ctx, "ListClusters", func() (err error) {
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list EMR clusters: %w", err)
		}
		for _, cluster := range page.Clusters {
			ids = append(ids, aws.ToString(cluster.Id))
		}
	}

	zerolog.Ctx(ctx).Debug().Int("clusters", len(ids)).Msg("listed EMR clusters")
	return ids, nil
}

func (c *EMRClient) ClusterAvailabilityZone(ctx context.Context, clusterID string) (string, error) {
	var out *emr.DescribeClusterOutput
	err := c.call(ctx, "DescribeCluster", func() (err error) {
		out, err = c.api.DescribeCluster(ctx, &emr.DescribeClusterInput{ClusterId: aws.String(clusterID)})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe cluster %s: %w", clusterID, err)
	}

	if out.Cluster == nil || out.Cluster.Ec2InstanceAttributes == nil {
		return "", fmt.Errorf("cluster %s has no EC2 instance attributes", clusterID)
	}
	zone := aws.ToString(out.Cluster.Ec2InstanceAttributes.Ec2AvailabilityZone)
	if zone == "" {
		return "", fmt.Errorf("cluster %s has no availability zone", clusterID)
	}
	return zone, nil
}

func (c *EMRClient) ListInstanceGroups(ctx context.Context, clusterID string) ([]domain.InstanceGroup, error) {
	paginator := emr.NewListInstanceGroupsPaginator(c.api, &emr.ListInstanceGroupsInput{
		ClusterId: aws.String(clusterID),
	})

	var groups []domain.InstanceGroup
	for paginator.HasMorePages() {
		var page *emr.ListInstanceGroupsOutput
		err := c.call(ctx, "ListInstanceGroups", func() (err error) {
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list instance groups of cluster %s: %w", clusterID, err)
		}

		for _, g := range page.InstanceGroups {
			role, err := domain.ParseGroupRole(string(g.InstanceGroupType))
			if err != nil {
				return nil, fmt.Errorf("instance group %s: %w", aws.ToString(g.Id), err)
			}
			groups = append(groups, domain.InstanceGroup{
				ID:           aws.ToString(g.Id),
				InstanceType: aws.ToString(g.InstanceType),
				Role:         role,
				EbsVolumes:   ebsVolumes(g.EbsBlockDevices),
			})
		}
	}
	return groups, nil
}

func (c *EMRClient) ListInstanceFleets(ctx context.Context, clusterID string) ([]domain.InstanceGroup, error) {
	paginator := emr.NewListInstanceFleetsPaginator(c.api, &emr.ListInstanceFleetsInput{
		ClusterId: aws.String(clusterID),
	})

	var fleets []domain.InstanceGroup
	for paginator.HasMorePages() {
		var page *emr.ListInstanceFleetsOutput
		err := c.call(ctx, "ListInstanceFleets", func() (err error) {
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list instance fleets of cluster %s: %w", clusterID, err)
		}

		for _, f := range page.InstanceFleets {
			id := aws.ToString(f.Id)
			role, err := domain.ParseGroupRole(string(f.InstanceFleetType))
			if err != nil {
				return nil, fmt.Errorf("instance fleet %s: %w", id, err)
			}
			if len(f.InstanceTypeSpecifications) == 0 {
				return nil, fmt.Errorf("instance fleet %s has no instance type specifications", id)
			}
			// the first specification stands for the whole fleet
			spec := f.InstanceTypeSpecifications[0]
			fleets = append(fleets, domain.InstanceGroup{
				ID:           id,
				InstanceType: aws.ToString(spec.InstanceType),
				Role:         role,
				EbsVolumes:   ebsVolumes(spec.EbsBlockDevices),
			})
		}
	}
	return fleets, nil
}

func (c *EMRClient) ListInstances(
	ctx context.Context,
	clusterID string,
	group domain.InstanceGroup,
	kind domain.TopologyKind,
) ([]domain.Instance, error) {
	input := &emr.ListInstancesInput{ClusterId: aws.String(clusterID)}
	switch kind {
	case domain.TopologyInstanceGroups:
		input.InstanceGroupId = aws.String(group.ID)
	case domain.TopologyInstanceFleets:
		input.InstanceFleetId = aws.String(group.ID)
	default:
		return nil, fmt.Errorf("unknown topology kind %q", kind)
	}

	paginator := emr.NewListInstancesPaginator(c.api, input)

	var instances []domain.Instance
	for paginator.HasMorePages() {
		var page *emr.ListInstancesOutput
		err := c.call(ctx, "ListInstances", func() (err error) {
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list instances of %s: %w", group.ID, err)
		}
		for _, i := range page.Instances {
			instances = append(instances, toDomainInstance(i))
		}
	}
	return instances, nil
}

func toDomainInstance(i types.Instance) domain.Instance {
	id := aws.ToString(i.Ec2InstanceId)
	if id == "" {
		id = aws.ToString(i.Id)
	}

	instance := domain.Instance{
		ID:           id,
		InstanceType: aws.ToString(i.InstanceType),
		Market:       domain.MarketType(i.Market),
	}
	if i.Status != nil && i.Status.Timeline != nil {
		instance.CreationTime = i.Status.Timeline.CreationDateTime
		instance.EndTime = i.Status.Timeline.EndDateTime
	}
	for _, v := range i.EbsVolumes {
		instance.EbsVolumeIDs = append(instance.EbsVolumeIDs, aws.ToString(v.VolumeId))
	}
	return instance
}

func ebsVolumes(devices []types.EbsBlockDevice) []domain.EbsVolumeSpec {
	var volumes []domain.EbsVolumeSpec
	for _, d := range devices {
		if d.VolumeSpecification == nil {
			continue
		}
		volumes = append(volumes, domain.EbsVolumeSpec{
			SizeGB:     aws.ToInt32(d.VolumeSpecification.SizeInGB),
			VolumeType: aws.ToString(d.VolumeSpecification.VolumeType),
		})
	}
	return volumes
}
