package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/vkb-graph/backend/internal/api"
	"github.com/vkb-graph/backend/internal/config"
	"github.com/vkb-graph/backend/internal/metrics"
	"github.com/vkb-graph/backend/internal/query"
	"github.com/vkb-graph/backend/internal/storage"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(flags *globalFlags) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve installation and SPARQL queries over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "vkbgraph.config", "XML config file, created with defaults when missing")

	return cmd
}

func runServe(ctx context.Context, flags *globalFlags, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	logger, err := flags.logger(cfg.Advanced.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	m := metrics.New()
	store := storage.NewGraphStore(nil, logger)
	if g, err := store.Get(cfg.Storage.GraphSource); err != nil {
		// Queries answer 503 until a graph is available.
		logger.Warn("graph not loaded", zap.String("source", cfg.Storage.GraphSource), zap.Error(err))
	} else {
		m.ObserveGraphLoad(g.Len())
	}

	engineOpts := []query.Option{query.WithLogger(logger)}
	if cfg.Processing.GuardCycles {
		engineOpts = append(engineOpts, query.WithCycleGuard())
	}

	deps := &api.Dependencies{
		Engine:   query.NewEngine(store, engineOpts...),
		Graph:    store,
		Observer: m,
		Logger:   logger,
		Version:  Version,
	}
	if cfg.Advanced.EnableMetrics {
		deps.Metrics = m.Handler()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.SetupMiddleware(e, cfg, logger)
	api.RegisterRoutes(e, api.NewHandlers(deps))

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(configPath, cfg, store.Source())

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func printBanner(configPath string, cfg *config.AppConfig, source string) {
	if source == "" {
		source = "(none)"
	}
	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           VKB Graph Server                                ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Graph:     %-46s║\n", source)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
