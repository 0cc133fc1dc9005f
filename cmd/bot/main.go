package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/vredditbot/vredditbot/internal/api"
	"github.com/vredditbot/vredditbot/internal/api/handler"
	"github.com/vredditbot/vredditbot/internal/cache"
	"github.com/vredditbot/vredditbot/internal/config"
	"github.com/vredditbot/vredditbot/internal/delivery"
	"github.com/vredditbot/vredditbot/internal/downloader"
	"github.com/vredditbot/vredditbot/internal/logger"
	"github.com/vredditbot/vredditbot/internal/reddit"
	"github.com/vredditbot/vredditbot/internal/resolver"
	"github.com/vredditbot/vredditbot/internal/telegram"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vredditbot %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	log.Info().Str("version", Version).Str("build_time", BuildTime).Msg("starting vredditbot")

	// Cache store; unavailability degrades to an always-miss store so the
	// bot still works, just without reuse.
	store, closeStore := openStore(cfg.Cache, log)
	defer closeStore()

	b, err := tgbot.New(cfg.Telegram.BotToken, tgbot.WithSkipGetMe())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create telegram bot")
	}

	// Wire the pipeline
	redditClient := reddit.NewClient(cfg.Reddit, log)
	res := resolver.New(store, redditClient, log)
	ffmpeg := downloader.New(cfg.Download, log)
	sender := telegram.NewSender(b, log)
	orch := delivery.NewOrchestrator(sender, res, ffmpeg, store, cfg.Download.MaxFileSize, log)

	h := telegram.NewHandler(res, orch, sender, cfg.Telegram.CacheChatID, cfg.Telegram.ErrorChatID, cfg.Status.Debounce, log)
	b.RegisterHandlerMatchFunc(matchAll, h.HandleUpdate)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Telegram.UseWebhook {
		runWebhook(ctx, cfg, b, store, log)
	} else {
		log.Info().Msg("starting long polling")
		b.Start(ctx)
	}

	log.Info().Msg("shutdown complete")
}

// runWebhook serves Telegram updates over HTTP next to health probes.
func runWebhook(ctx context.Context, cfg *config.Config, b *tgbot.Bot, store cache.Store, log zerolog.Logger) {
	healthHandler := handler.NewHealthHandler(func(ctx context.Context) error {
		_, _, err := store.Read(ctx, "https://v.redd.it/readiness-probe")
		return err
	})
	router := api.NewRouter(b.WebhookHandler(), healthHandler, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Blocks until the signal context is cancelled.
	b.StartWebhook(ctx)

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
}

func openStore(cfg config.CacheConfig, log zerolog.Logger) (cache.Store, func()) {
	switch cfg.Backend {
	case "sqlite":
		s, err := cache.NewSQLiteStore(cfg.Path, log)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Path).Msg("sqlite cache unavailable, continuing without cache")
			return cache.Noop{}, func() {}
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close cache store")
			}
		}
	case "file":
		s, err := cache.NewFileStore(cfg.Dir, log)
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.Dir).Msg("file cache unavailable, continuing without cache")
			return cache.Noop{}, func() {}
		}
		return s, func() {}
	default:
		return cache.Noop{}, func() {}
	}
}

func matchAll(update *models.Update) bool {
	return true
}
