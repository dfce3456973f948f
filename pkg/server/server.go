package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handlers "github.com/de-tools/emr-cost/pkg/handlers/cluster"
	synchandlers "github.com/de-tools/emr-cost/pkg/handlers/syncstatus"
	"github.com/de-tools/emr-cost/pkg/services/cost"
	"github.com/de-tools/emr-cost/pkg/services/workflow"
	costsql "github.com/de-tools/emr-cost/pkg/store/sql"

	emrcostmiddleware "github.com/de-tools/emr-cost/pkg/server/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

type WebAPI struct {
	router          http.Handler
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Calculator cost.Calculator
	// Store is optional; without it costs are not persisted.
	Store costsql.CostStore
	// Sync is optional; without it /api/v1/sync is not served.
	Sync workflow.Controller
	// Metrics is optional; without it /metrics is not served.
	Metrics prometheus.Gatherer
	Logger  zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func ConfigureRouter(config Config) http.Handler {
	logger := config.Dependencies.Logger
	clusterHandler := handlers.NewHandler(config.Dependencies.Calculator, config.Dependencies.Store)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(emrcostmiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/clusters/{clusterID}/cost", clusterHandler.GetClusterCost)
		r.Get("/clusters/{clusterID}/cost/history", clusterHandler.GetCostHistory)
		r.Get("/cost", clusterHandler.GetTotalCost)

		if config.Dependencies.Sync != nil {
			var stats synchandlers.StatsReader
			if config.Dependencies.Store != nil {
				stats = config.Dependencies.Store
			}
			r.Get("/sync", synchandlers.NewHandler(config.Dependencies.Sync, stats).GetStatus)
		}
	})

	if config.Dependencies.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(config.Dependencies.Metrics, promhttp.HandlerOpts{}))
	}

	return router
}

func NewWebAPI(config Config) *WebAPI {
	router := ConfigureRouter(config)
	logger := config.Dependencies.Logger

	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	return &WebAPI{
		router:          router,
		logger:          &logger,
		shutdownTimeout: shutdownTimeout,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Cost computations can page through long spot histories; give them a deadline.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
