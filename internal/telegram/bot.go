package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/quotebot/quotebot/internal/analytics"
	"github.com/quotebot/quotebot/internal/cache"
	"github.com/quotebot/quotebot/internal/config"
	"github.com/quotebot/quotebot/internal/consts"
	"github.com/quotebot/quotebot/internal/database"
	"github.com/quotebot/quotebot/internal/delivery"
	"github.com/quotebot/quotebot/internal/logger"
)

// Deliverer runs a quote delivery for a chat.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64) delivery.Outcome
}

// Recorder receives per-message analytics.
type Recorder interface {
	RecordUser(u database.User)
	TouchActivity(chatID int64)
	RecordAction(chatID int64, action string, data map[string]interface{})
}

// StatsSource is the read side of the analytics store.
type StatsSource interface {
	GetStats() (*database.Stats, error)
	GetPopularActions(limit int) ([]database.ActionCount, error)
	GetDailyStats(days int) ([]database.DailyStat, error)
}

// Metrics receives transport measurements.
type Metrics interface {
	RecordMessage(command string)
	RecordRateLimitWait(limitType string)
	UpdateQueueDepth(depth int)
}

type nopMetrics struct{}

func (nopMetrics) RecordMessage(string)       {}
func (nopMetrics) RecordRateLimitWait(string) {}
func (nopMetrics) UpdateQueueDepth(int)       {}

// Deps are the collaborators of a Bot. Recorder, Stats and Metrics are
// optional.
type Deps struct {
	Deliverer Deliverer
	Recorder  Recorder
	Stats     StatsSource
	Metrics   Metrics
}

type Bot struct {
	api        BotAPI
	sender     *Sender
	config     *config.Config
	deliverer  Deliverer
	recorder   Recorder
	stats      StatsSource
	metrics    Metrics
	statsCache *cache.Cache[string]
	workerPool *WorkerPool
	pause      func(ctx context.Context, d time.Duration)
}

func NewBot(cfg *config.Config, api BotAPI, sender *Sender, deps Deps) *Bot {
	b := &Bot{
		api:        api,
		sender:     sender,
		config:     cfg,
		deliverer:  deps.Deliverer,
		recorder:   deps.Recorder,
		stats:      deps.Stats,
		metrics:    deps.Metrics,
		statsCache: cache.NewWithConfig[string](1, statsCacheTTL, statsCacheTTL),
		pause:      sleepContext,
	}
	if b.recorder == nil {
		b.recorder = analytics.Nop{}
	}
	if b.metrics == nil {
		b.metrics = nopMetrics{}
	}
	b.workerPool = NewWorkerPool(b, DefaultWorkerPoolConfig())
	return b
}

// Start polls for updates until ctx is cancelled or the update channel is
// closed by Stop.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.workerPool.Start(); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	go b.sweepLimiters(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message"}

	updates := b.api.GetUpdatesChan(u)

	logger.InfoMsg("Bot started, waiting for messages")

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Chat == nil {
				continue
			}
			if err := b.workerPool.SubmitMessage(update.Message); err != nil {
				logger.Error("Failed to submit message to worker pool", map[string]interface{}{
					"error":   err.Error(),
					"chat_id": update.Message.Chat.ID,
				})
				b.sendErrorResponse(update.Message.Chat.ID, err)
			}
			b.metrics.UpdateQueueDepth(b.workerPool.QueueDepth())
		}
	}
}

// Stop stops polling and drains the worker pool.
func (b *Bot) Stop() {
	logger.InfoMsg("Stopping bot")
	b.api.StopReceivingUpdates()

	if err := b.workerPool.Stop(); err != nil {
		logger.Error("Failed to stop worker pool", map[string]interface{}{
			"error": err.Error(),
		})
	}
	b.statsCache.Close()
}

func (b *Bot) sweepLimiters(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := b.sender.SweepLimiters(); removed > 0 {
				logger.Debug("Removed idle chat limiters", map[string]interface{}{
					"removed": removed,
				})
			}
		}
	}
}

// handleMessage routes one inbound message. Text that matches no command or
// menu button is tracked and otherwise ignored.
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	b.trackUser(message, text)
	b.metrics.RecordMessage(commandLabel(text))

	switch text {
	case consts.CommandStart, consts.CommandHelp:
		return b.handleStart(chatID)
	case consts.ButtonQuote:
		b.deliverer.Deliver(ctx, chatID)
		return nil
	case consts.ButtonBookClub:
		return b.handleBookClub(chatID)
	case consts.ButtonAboutMe:
		return b.handleAbout(chatID)
	case consts.ButtonGame:
		return b.handleGame(ctx, chatID)
	case consts.CommandAdminTop:
		return b.handleAdminStats(message)
	default:
		logger.Debug("Ignoring unrecognized message", map[string]interface{}{
			"chat_id": chatID,
		})
		return nil
	}
}

func (b *Bot) trackUser(message *tgbotapi.Message, text string) {
	chatID := message.Chat.ID

	u := database.User{ChatID: chatID}
	if message.From != nil {
		u.Username = message.From.UserName
		u.FirstName = message.From.FirstName
		u.LastName = message.From.LastName
	}

	b.recorder.RecordUser(u)
	b.recorder.RecordAction(chatID, consts.ActionMessageReceived, map[string]interface{}{
		"text": text,
	})
	b.recorder.TouchActivity(chatID)
}

var commandLabels = map[string]string{
	consts.CommandStart:    "start",
	consts.CommandHelp:     "help",
	consts.ButtonQuote:     "quote",
	consts.ButtonBookClub:  "book_club",
	consts.ButtonAboutMe:   "about",
	consts.ButtonGame:      "game",
	consts.CommandAdminTop: "admin_stats",
}

func commandLabel(text string) string {
	return commandLabels[text]
}

func (b *Bot) sendErrorResponse(chatID int64, err error) {
	logger.WithChat(chatID, "handler").WithError(err).Warn("Request failed, notifying user")
	if _, sendErr := b.sender.SendText(chatID, consts.UnavailableMessage); sendErr != nil {
		logger.Error("Failed to send error response", map[string]interface{}{
			"chat_id": chatID,
			"error":   sendErr.Error(),
		})
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
