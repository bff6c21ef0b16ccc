package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"wealthtrack/internal/advice"
	"wealthtrack/internal/amqp"
	"wealthtrack/internal/cache"
	"wealthtrack/internal/cli"
	"wealthtrack/internal/config"
	apphttp "wealthtrack/internal/http"
	"wealthtrack/internal/log"
	"wealthtrack/internal/middleware/ratelimit"
	"wealthtrack/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	kv, err := cli.InitStorage(logger, cfg)
	if err != nil {
		os.Exit(1)
	}
	defer kv.Close()

	ctx := context.Background()
	records, err := store.Open(ctx, kv, store.Options{Seed: cfg.SeedDemoData, Logger: logger})
	if err != nil {
		logger.Error("Failed to load records", log.FieldError, err)
		os.Exit(1)
	}

	advisor := advice.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AdviceLanguage)
	adviceSvc := advice.NewService(advisor, advice.ServiceConfig{
		Timeout:  cfg.AdviceTimeout,
		CacheTTL: cfg.AdviceCacheTTL,
	}, logger)
	if cfg.GeminiAPIKey == "" {
		logger.Warn("No Gemini API key configured, advice will show a placeholder")
	}

	caches := cache.NewManager(logger)
	caches.Register(adviceSvc.Cache())
	caches.StartCleanup(10 * time.Minute)

	// answers are keyed by record version; drop stale ones eagerly
	records.Subscribe(func(_ context.Context, ev store.Event) {
		switch ev.Op {
		case store.OpReplace, store.OpClear:
			adviceSvc.Cache().Purge()
		default:
			adviceSvc.Forget(ev.RecordID)
		}
	})

	var publisher *amqp.Client
	if cfg.AMQPEnabled() {
		publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		records.Subscribe(publishChanges(publisher, logger))
		logger.Info("Change events enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP_URL not set, change events disabled")
	}

	deps := apphttp.Deps{
		Store:   records,
		Prefs:   store.NewPrefs(kv),
		Advice:  adviceSvc,
		Logger:  logger,
		Limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
	}
	if p, ok := kv.(apphttp.Pinger); ok {
		deps.Ready = p
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps)

	shutdownCtx, done := cli.GracefulShutdown(context.Background(), logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if publisher != nil {
			_ = publisher.Close()
		}
	})

	logger.Info("Starting wealthtrack server", "port", cfg.Port, "backend", cfg.DataBackend, log.FieldRecordCount, records.Len())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

// publishChanges forwards store events to the broker. Publishing never
// blocks a request for long and failures only cost a backup run.
func publishChanges(c *amqp.Client, logger *log.Logger) store.Observer {
	return func(ctx context.Context, ev store.Event) {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		msg := amqp.NewRecordChangedMessage(string(ev.Op), ev.RecordID)
		if err := c.PublishRecordChanged(pubCtx, msg); err != nil {
			logger.WarnContext(ctx, "Failed to publish change event",
				log.FieldOperation, string(ev.Op), log.FieldRecordID, ev.RecordID, log.FieldError, err)
		}
	}
}
