package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oxhq/saq/internal/config"
	"github.com/oxhq/saq/internal/logging"
	"github.com/oxhq/saq/internal/provider"
	"github.com/oxhq/saq/internal/store"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll configured providers and serve the debug HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath)
		},
	}
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	urls, err := config.ProviderList(cfg.ProviderListPath)
	if err != nil {
		return err
	}

	s := store.New()
	sources := make([]provider.Source, len(urls))
	for i, u := range urls {
		sources[i] = provider.Source{BaseURL: u}
	}
	poller := provider.New(s, sources, cfg.PollInterval, cfg.FetchTimeout, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/debug/metrics", promhttp.Handler())
	httpServer := &http.Server{Addr: cfg.DebugListenAddr, Handler: mux}

	go func() {
		log.Info("debug http surface listening", zap.String("addr", cfg.DebugListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("debug http surface exited", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting provider poller", zap.Int("providers", len(sources)))
	return poller.Run(ctx)
}
