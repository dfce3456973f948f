package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/de-tools/emr-cost/pkg/adapters"
	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/rs/zerolog"
)

const keyTimeLayout = "20060102T150405Z"

// Exporter publishes computed cluster costs and returns where they were written.
type Exporter interface {
	Export(ctx context.Context, cost *domain.ClusterCost) (string, error)
}

type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Exporter writes a cluster cost as JSON to
// s3://{bucket}/{prefix}/{clusterID}/{computedAt}.json.
type S3Exporter struct {
	api    PutObjectAPI
	bucket string
	prefix string
}

func NewS3Exporter(api PutObjectAPI, bucket, prefix string) *S3Exporter {
	return &S3Exporter{api: api, bucket: bucket, prefix: prefix}
}

func NewS3ExporterFromConfig(cfg aws.Config, bucket, prefix string) *S3Exporter {
	return NewS3Exporter(s3.NewFromConfig(cfg), bucket, prefix)
}

// Key returns the object key of cost.
func (e *S3Exporter) Key(cost *domain.ClusterCost) string {
	return path.Join(e.prefix, cost.ClusterID, cost.ComputedAt.UTC().Format(keyTimeLayout)+".json")
}

func (e *S3Exporter) Export(ctx context.Context, cost *domain.ClusterCost) (string, error) {
	body, err := json.MarshalIndent(adapters.MapClusterCostDomainToApi(*cost), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode cost of %s: %w", cost.ClusterID, err)
	}

	key := e.Key(cost)
	_, err = e.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload cost of %s to s3://%s/%s: %w", cost.ClusterID, e.bucket, key, err)
	}

	location := fmt.Sprintf("s3://%s/%s", e.bucket, key)
	zerolog.Ctx(ctx).Debug().Str("location", location).Msg("cluster cost exported")
	return location, nil
}
