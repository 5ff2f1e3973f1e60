package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"salesdash/internal/api"
	"salesdash/internal/config"
	"salesdash/internal/engine"
	"salesdash/internal/export"
	"salesdash/internal/forecast"
	"salesdash/internal/logging"
	"salesdash/internal/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "salesdash",
		Short:        "Sales analytics dashboard backend",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newExportCmd())
	return root
}

func newSource(cfg config.DataConfig) engine.Source {
	if cfg.BaseURL != "" {
		return engine.HTTPSource{BaseURL: cfg.BaseURL, Client: &http.Client{Timeout: cfg.LoadTimeout}}
	}
	return engine.DirSource{Dir: cfg.Dir}
}

func setup() (*config.Config, *slog.Logger, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closeLog, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API; the dataset loads in the background",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closeLog, err := setup()
			if err != nil {
				return err
			}
			defer closeLog()
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	src := newSource(cfg.Data)
	h := api.NewHandler(api.Options{
		Load: func(ctx context.Context) (*engine.Dataset, error) {
			ctx, cancel := context.WithTimeout(ctx, cfg.Data.LoadTimeout)
			defer cancel()
			return engine.Load(ctx, src, logger)
		},
		Forecaster:     forecast.NewClient(cfg.Forecast.URL, cfg.Forecast.Timeout, logger),
		Metrics:        metrics.New(),
		Logger:         logger,
		DefaultHorizon: cfg.Forecast.DefaultHorizon,
	})
	e := api.NewServer(h, cfg.Server.AllowedOrigins, logger)
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	// The API answers 503 until the first load lands.
	go func() {
		logger.Info("background load started")
		if err := h.Reload(ctx); err != nil {
			logger.Error("initial load failed", slog.String("error", err.Error()))
			return
		}
		logger.Info("background load complete, API is fully ready")
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", addr))
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newExportCmd() *cobra.Command {
	var (
		out    string
		filter engine.Filter
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Load the dataset once and write the dashboard workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closeLog, err := setup()
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Data.LoadTimeout)
			defer cancel()
			ds, err := engine.Load(ctx, newSource(cfg.Data), logger)
			if err != nil {
				return fmt.Errorf("failed to load data: %w", err)
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			start := time.Now()
			if err := export.WriteWorkbook(f, ds.Aggregate(filter)); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			logger.Info("workbook written", slog.String("path", out), slog.Duration("elapsed", time.Since(start)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "dashboard.xlsx", "output workbook path")
	cmd.Flags().StringVar(&filter.Category, "category", "", "restrict segments to one product category")
	cmd.Flags().StringVar(&filter.Region, "region", "", "restrict states to one customer region")
	cmd.Flags().StringVar(&filter.ProductCategory, "product-category", "", "restrict top products to one category")
	return cmd
}
