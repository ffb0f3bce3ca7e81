package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/quotebot/quotebot/internal/consts"
	"github.com/quotebot/quotebot/internal/database"
	"github.com/quotebot/quotebot/internal/logger"
)

const (
	statsCacheKey        = "admin_stats"
	statsCacheTTL        = time.Hour
	statsTopActions      = 5
	statsDays            = 7
	limiterSweepInterval = 5 * time.Minute
)

func (b *Bot) isAdmin(message *tgbotapi.Message) bool {
	return message.From != nil && b.config.AdminChatID != 0 && message.From.ID == b.config.AdminChatID
}

func (b *Bot) handleAdminStats(message *tgbotapi.Message) error {
	chatID := message.Chat.ID

	if !b.isAdmin(message) {
		_, err := b.sender.SendText(chatID, consts.NoRightsMessage)
		return err
	}
	if b.stats == nil {
		_, err := b.sender.SendText(chatID, consts.StatsNoDBMessage)
		return err
	}

	report, err := b.statsReport()
	if err != nil {
		logger.Error("Failed to build stats report", map[string]interface{}{
			"chat_id": chatID,
			"error":   err.Error(),
		})
		_, err = b.sender.SendText(chatID, consts.StatsFailedMessage)
		return err
	}

	_, err = b.sender.SendText(chatID, report)
	return err
}

// statsReport returns the cached report or builds a fresh one.
func (b *Bot) statsReport() (string, error) {
	if report, ok := b.statsCache.Get(statsCacheKey); ok {
		return report, nil
	}

	stats, err := b.stats.GetStats()
	if err != nil {
		return "", fmt.Errorf("failed to get totals: %w", err)
	}
	popular, err := b.stats.GetPopularActions(statsTopActions)
	if err != nil {
		return "", fmt.Errorf("failed to get popular actions: %w", err)
	}
	daily, err := b.stats.GetDailyStats(statsDays)
	if err != nil {
		return "", fmt.Errorf("failed to get daily stats: %w", err)
	}

	report := formatStats(stats, popular, daily)
	b.statsCache.SetWithExpiry(statsCacheKey, report, statsCacheTTL)
	return report, nil
}

func formatStats(stats *database.Stats, popular []database.ActionCount, daily []database.DailyStat) string {
	var sb strings.Builder

	sb.WriteString("📊 Статистика бота\n\n")
	fmt.Fprintf(&sb, "👥 Всего пользователей: %d\n", stats.TotalUsers)
	fmt.Fprintf(&sb, "🎯 Всего действий: %d\n", stats.TotalActions)
	fmt.Fprintf(&sb, "📅 Активных дней: %d\n\n", stats.ActiveDays)

	sb.WriteString("🔥 Топ действий:\n")
	for i, a := range popular {
		fmt.Fprintf(&sb, "%d. %s: %d\n", i+1, a.Action, a.Count)
	}

	fmt.Fprintf(&sb, "\n📈 Статистика за %d дней:\n", statsDays)
	for _, d := range daily {
		fmt.Fprintf(&sb, "%s: %d действий (%d пользователей)\n", d.Day, d.Actions, d.UniqueUsers)
	}

	return strings.TrimRight(sb.String(), "\n")
}
