package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/de-tools/emr-cost/pkg/metrics"
	"github.com/de-tools/emr-cost/pkg/runtime/terminal/export"
	"github.com/de-tools/emr-cost/pkg/services/config"
	"github.com/de-tools/emr-cost/pkg/services/cost"
	"github.com/de-tools/emr-cost/pkg/services/spot"
	"github.com/de-tools/emr-cost/pkg/store/client"
	"github.com/de-tools/emr-cost/pkg/store/pricing"
	costsql "github.com/de-tools/emr-cost/pkg/store/sql"
	"github.com/rs/zerolog"
)

const priceListTimeout = 5 * time.Minute

// Services are the long-lived components shared by the CLI and the web API.
// Store and Exporter are nil unless storage.dsn and export.bucket are set.
type Services struct {
	Calculator cost.Calculator
	Store      costsql.CostStore
	Exporter   export.Exporter

	closers []func() error
}

func (s *Services) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// NewServices loads AWS credentials and the regional price catalog, then wires
// the EMR and spot clients, the spot price cache and the cost calculator.
// collector may be nil.
func NewServices(ctx context.Context, cfg *config.Config, collector *metrics.Collector) (*Services, error) {
	logger := zerolog.Ctx(ctx)

	awsCfg, err := client.LoadAWSConfig(ctx, cfg.Profile, cfg.Region)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("region", awsCfg.Region).Str("profile", cfg.Profile).Msg("AWS config loaded")

	catalog, err := pricing.LoadCatalog(
		ctx,
		&http.Client{Timeout: priceListTimeout},
		cfg.Pricing.BaseURL,
		awsCfg.Region,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load price catalog: %w", err)
	}

	clientOpts := []client.Option{
		client.WithRetryPolicy(cfg.Retry.Policy()),
		client.WithMetrics(collector),
	}
	emrClient := client.NewEMRClientFromConfig(*awsCfg, clientOpts...)
	spotClient := client.NewSpotPriceClientFromConfig(*awsCfg, cfg.Pricing.ProductDescription, clientOpts...)

	cache := spot.NewCache(spotClient,
		spot.WithGapTolerance(cfg.Spot.GapTolerance),
		spot.WithMetrics(collector),
	)

	services := &Services{
		Calculator: cost.NewCalculator(emrClient, catalog, spot.NewPricer(cache), cost.WithMetrics(collector)),
	}

	if cfg.Storage.DSN != "" {
		db, err := costsql.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, err
		}
		services.Store = costsql.NewCostStore(db)
		services.closers = append(services.closers, db.Close)
	}

	if cfg.Export.Bucket != "" {
		services.Exporter = export.NewS3ExporterFromConfig(*awsCfg, cfg.Export.Bucket, cfg.Export.Prefix)
	}

	return services, nil
}
