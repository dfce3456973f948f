package main

import (
	"fmt"
	"os"

	"github.com/de-tools/emr-cost/pkg/metrics"
	"github.com/de-tools/emr-cost/pkg/runtime/bootstrap"
	"github.com/de-tools/emr-cost/pkg/server"
	"github.com/de-tools/emr-cost/pkg/services/config"
	"github.com/de-tools/emr-cost/pkg/services/workflow"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for the EMR cost calculator",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to a YAML config file (EMRCOST_* environment variables override it)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector()
	if err := collector.Register(registry); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	services, err := bootstrap.NewServices(ctx, cfg, collector)
	if err != nil {
		return fmt.Errorf("failed to initialize cost services: %w", err)
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to release resources")
		}
	}()

	logger.Info().
		Str("region", cfg.Region).
		Str("profile", cfg.Profile).
		Bool("storage", services.Store != nil).
		Msg("cost services ready")

	deps := server.Dependencies{
		Calculator: services.Calculator,
		Store:      services.Store,
		Metrics:    registry,
		Logger:     logger,
	}

	if cfg.Sync.Enabled {
		syncCtrl := workflow.NewController(services.Calculator, services.Store, workflow.RunnerConfig{
			Lookback:      cfg.Sync.Lookback,
			BatchInterval: cfg.Sync.BatchInterval,
			SleepInterval: cfg.Sync.SleepInterval,
			MaxAttempts:   cfg.Sync.MaxBatchAttempts,
		})
		if err := syncCtrl.Start(ctx); err != nil {
			return fmt.Errorf("failed to start cost sync: %w", err)
		}
		defer func() {
			_ = syncCtrl.Cancel(ctx)
		}()
		deps.Sync = syncCtrl
	}

	api := server.NewWebAPI(server.Config{
		Addr:         cfg.Server.Addr(),
		Dependencies: deps,
	})

	return api.Start()
}
