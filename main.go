package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/quotebot/quotebot/internal/analytics"
	"github.com/quotebot/quotebot/internal/cache"
	"github.com/quotebot/quotebot/internal/config"
	"github.com/quotebot/quotebot/internal/database"
	"github.com/quotebot/quotebot/internal/delivery"
	"github.com/quotebot/quotebot/internal/gate"
	"github.com/quotebot/quotebot/internal/image"
	"github.com/quotebot/quotebot/internal/logger"
	"github.com/quotebot/quotebot/internal/media"
	"github.com/quotebot/quotebot/internal/metrics"
	"github.com/quotebot/quotebot/internal/quote"
	"github.com/quotebot/quotebot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	if err := logger.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("quotebot is starting", map[string]interface{}{
		"log_level":      cfg.LogLevel,
		"image_provider": cfg.ImageProvider,
		"has_database":   cfg.HasDatabaseConfig(),
		"has_metrics":    cfg.HasMetricsConfig(),
		"timezone":       cfg.Timezone.String(),
	})

	api, err := telegram.NewAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatalf("Failed to create Telegram bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := newApp(ctx, cfg, api, registry)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}
	defer a.shutdown()

	logger.Info("Bot authorized", map[string]interface{}{
		"username": api.Self.UserName,
	})

	if err := a.bot.Start(ctx); err != nil {
		logger.Error("Bot error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// analyticsRecorder is what both the bot and the orchestrator record into.
type analyticsRecorder interface {
	telegram.Recorder
	delivery.Recorder
}

type app struct {
	bot           *telegram.Bot
	db            *database.DB
	materializer  *media.Materializer
	models        *cache.Cache[string]
	metricsServer *metrics.Server
}

func newApp(ctx context.Context, cfg *config.Config, api telegram.BotAPI, registry *prometheus.Registry) (*app, error) {
	a := &app{
		materializer: media.NewMaterializer(cfg.TempDir, cfg.DownloadTimeout),
		models:       cache.New[string](),
	}

	var recorder analyticsRecorder = analytics.Nop{}
	var stats telegram.StatsSource
	if cfg.HasDatabaseConfig() {
		driver, dsn := cfg.DatabaseDriver()
		db, err := database.NewDB(driver, dsn, cfg.Timezone)
		if err != nil {
			a.models.Close()
			return nil, fmt.Errorf("failed to open analytics database: %w", err)
		}
		a.db = db
		recorder = analytics.NewRecorder(db)
		stats = db
	} else {
		logger.WarnMsg("No database configured, analytics are disabled")
	}

	images, err := image.NewSource(ctx, cfg, a.models)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create image source: %w", err)
	}

	collector := metrics.NewCollector(registry)
	if cfg.HasMetricsConfig() {
		a.metricsServer = metrics.StartServer(cfg.MetricsAddr, registry)
	}

	sender := telegram.NewSender(api, telegram.DefaultSenderConfig(), collector)

	orchestrator := delivery.New(delivery.Deps{
		Gate: gate.New(cfg.Timezone, gate.NewMemoryStore()),
		Quotes: quote.NewSource(quote.Options{
			Endpoint: cfg.QuoteAPIURL,
			Lang:     cfg.QuoteLang,
			Timeout:  cfg.QuoteTimeout,
		}),
		Images:       images,
		Materializer: a.materializer,
		Transport:    sender,
		Recorder:     recorder,
		Metrics:      collector,
	}, delivery.Options{
		RetryDelay: cfg.SendRetryDelay,
	})

	a.bot = telegram.NewBot(cfg, api, sender, telegram.Deps{
		Deliverer: orchestrator,
		Recorder:  recorder,
		Stats:     stats,
		Metrics:   collector,
	})

	logger.Info("Bot initialized", map[string]interface{}{
		"image_strategy": images.Name(),
		"temp_dir":       a.materializer.Dir(),
	})
	return a, nil
}

// shutdown stops the bot and then releases everything else.
func (a *app) shutdown() {
	a.bot.Stop()
	a.close()
	logger.InfoMsg("quotebot stopped")
}

func (a *app) close() {
	if err := a.materializer.Purge(); err != nil {
		logger.Warn("Failed to remove temp directory", map[string]interface{}{
			"error": err.Error(),
		})
	}
	a.models.Close()

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			logger.Warn("Failed to stop metrics server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logger.Warn("Failed to close database", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}
