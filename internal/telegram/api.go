package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/quotebot/quotebot/internal/logger"
	"github.com/sirupsen/logrus"
)

// BotAPI is the subset of *tgbotapi.BotAPI used by the bot.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// NewAPI authorizes against Telegram. Library logs, including polling
// errors, are routed through the application logger.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	l := logger.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	if err := tgbotapi.SetLogger(l.WithField("component", "telegram")); err != nil {
		return nil, fmt.Errorf("failed to set telegram logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return api, nil
}
