package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telelingo/internal/adapter"
	"telelingo/internal/bot"
	"telelingo/internal/capability"
	"telelingo/internal/capability/libretranslate"
	"telelingo/internal/capability/openai"
	"telelingo/internal/config"
	"telelingo/internal/controller"
	"telelingo/internal/health"
	"telelingo/internal/metrics"
	"telelingo/internal/scheduler"
	"telelingo/internal/source"
)

func main() {
	levelVar := new(slog.LevelVar)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}
	levelVar.Set(cfg.LogLevel)

	provider := initProvider(ctx, cfg, log)
	gateway := capability.NewGateway(provider, log)

	translation := adapter.NewTranslation(gateway, log,
		adapter.WithSessionCache(adapter.NewSessionCache(cfg.SessionCacheSize, cfg.SessionIdleTTL)))

	ctrl := controller.New(
		adapter.NewDetection(gateway, log),
		translation,
		adapter.NewSummarization(gateway, log),
		log,
		controller.WithSourceResolver(source.NewResolver(nil, log)),
		controller.WithDefaultTargetLanguage(cfg.DefaultTargetLanguage),
	)

	botInst, err := bot.New(cfg.Token, ctrl, cfg.AllowedUsers, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err,
			"allowedUsersCount", len(cfg.AllowedUsers))

		return
	}
	log.InfoContext(ctx, "Bot is initialized",
		"allowedUsersCount", len(cfg.AllowedUsers),
		"provider", cfg.Provider)

	reporters := []scheduler.CapabilityReporter{metrics.Reporter{}}

	if cfg.HealthGRPCAddr != "" {
		healthServer := health.New(log)
		reporters = append(reporters, healthServer)

		go func() {
			if err := healthServer.Serve(ctx, cfg.HealthGRPCAddr); err != nil {
				log.ErrorContext(ctx, "Health server failed",
					"error", err,
					"addr", cfg.HealthGRPCAddr)
			}
		}()
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, log); err != nil {
				log.ErrorContext(ctx, "Metrics server failed",
					"error", err,
					"addr", cfg.MetricsAddr)
			}
		}()
	}

	sched := scheduler.New(ctx, gateway, translation, log, reporters...)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"probeSpec", scheduler.ProbeSpec,
			"janitorSpec", scheduler.JanitorSpec)

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"probeSpec", scheduler.ProbeSpec,
		"janitorSpec", scheduler.JanitorSpec,
		"sessionIdleTTL", cfg.SessionIdleTTL.String())

	go func() {
		botInst.Start(ctx)
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()

	log.InfoContext(ctx, "Exiting...",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())

	botInst.Stop()
	log.InfoContext(ctx, "Bot is stopped",
		"uptimeSeconds", time.Since(start).Seconds())
}

// initProvider picks the capability backend. Failures leave every
// capability unavailable instead of aborting start-up.
func initProvider(ctx context.Context, cfg config.Config, log *slog.Logger) capability.Provider {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		p, err := openai.New(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to create OpenAI provider so capabilities are unavailable",
				"error", err,
				"envVar", "OPENAI_API_KEY")

			return capability.Unavailable()
		}

		log.InfoContext(ctx, "OpenAI provider is initialized",
			"provider", cfg.Provider)

		return p

	case config.ProviderLibreTranslate:
		client := libretranslate.New(libretranslate.Config{
			BaseURL: cfg.LibreTranslateURL,
			APIKey:  cfg.LibreTranslateAPIKey,
		}, log)

		log.InfoContext(ctx, "LibreTranslate provider is initialized",
			"provider", cfg.Provider,
			"url", cfg.LibreTranslateURL)

		return client.Provider()

	default:
		log.WarnContext(ctx, "No provider is configured so capabilities are unavailable",
			"provider", cfg.Provider)

		return capability.Unavailable()
	}
}
