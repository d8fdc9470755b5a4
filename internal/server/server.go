// Package server wires the engine together and runs the HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/EBOLABOY/aeroscout/internal/config"
	"github.com/EBOLABOY/aeroscout/internal/core/analysis"
	"github.com/EBOLABOY/aeroscout/internal/core/event"
	"github.com/EBOLABOY/aeroscout/internal/core/job"
	"github.com/EBOLABOY/aeroscout/internal/core/normalize"
	"github.com/EBOLABOY/aeroscout/internal/core/provider"
	"github.com/EBOLABOY/aeroscout/internal/core/runner"
	"github.com/EBOLABOY/aeroscout/internal/core/search"
	"github.com/EBOLABOY/aeroscout/internal/core/stats"
	"github.com/EBOLABOY/aeroscout/internal/server/api"
)

func Run(ctx context.Context, cfg *config.Config) error {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Debug().Str("level", cfg.Logging.Level).Msg("log level configured")

	st, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer st.Close()

	bus := event.NewBus()
	collector := stats.NewCollector(bus)
	defer collector.Close()

	jobs := job.NewManager(st, bus, config.Duration(cfg.Store.TTL, time.Hour))

	analysisClient := analysis.NewClient(
		cfg.Analysis.BaseURL,
		cfg.Analysis.APIKey,
		config.Duration(cfg.Analysis.Timeout, 5*time.Minute),
	)
	invoker := analysis.NewInvoker(analysisClient, cfg.Analysis.Model, cfg.Analysis.ModelAuthenticated, bus)

	var skylens provider.Fetcher
	if cfg.Providers.Skylens.Enabled {
		skylens = provider.NewSkylens(
			cfg.Providers.Skylens.BaseURL,
			cfg.Providers.Skylens.APIKey,
			config.Duration(cfg.Providers.Skylens.Timeout, 45*time.Second),
			cfg.Providers.Skylens.Limit,
		)
	}
	var voyagr provider.Fetcher
	if cfg.Providers.Voyagr.Enabled {
		voyagr = provider.NewVoyagr(
			cfg.Providers.Voyagr.BaseURL,
			cfg.Providers.Voyagr.APIKey,
			config.Duration(cfg.Providers.Voyagr.Timeout, 45*time.Second),
			cfg.Providers.Voyagr.Limit,
		)
	}
	var hidden provider.Fetcher
	if skylens != nil {
		hidden = provider.NewHidden(
			invoker,
			skylens,
			normalize.Decode,
			cfg.Search.HiddenCandidates,
			cfg.Search.HiddenFanout,
		)
	}

	if skylens == nil && voyagr == nil {
		return fmt.Errorf("no search providers enabled, enable at least one of providers.skylens or providers.voyagr")
	}

	coordinator := search.NewCoordinator(skylens, voyagr, hidden, bus)
	merger := normalize.NewMerger(cfg.Search.RecordCap, cfg.Search.GuestRecordCap)
	jobRunner := runner.New(jobs, coordinator, merger, invoker, 10*time.Minute)

	e := echo.New()
	e.HideBanner = true

	api.SetupRouter(e, api.RouterConfig{
		Jobs:         jobs,
		Runner:       jobRunner,
		Stats:        collector,
		JWTSecret:    cfg.Auth.JWTSecret,
		PollInterval: config.Duration(cfg.Stream.PollInterval, 2*time.Second),
		StreamWait:   config.Duration(cfg.Stream.MaxWait, 5*time.Minute),
	})

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info().Str("addr", addr).Str("store", cfg.Store.Backend).Msg("aeroscout listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	return nil
}
