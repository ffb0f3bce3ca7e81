package telegram

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/quotebot/quotebot/internal/logger"
	"github.com/quotebot/quotebot/internal/media"
	"golang.org/x/time/rate"
)

// SenderConfig holds the outbound rate limits.
type SenderConfig struct {
	GlobalRate  rate.Limit // Messages per second across all chats
	GlobalBurst int
	ChatRate    rate.Limit // Messages per second for a single chat
	ChatBurst   int
	ChatIdle    time.Duration // Per-chat limiters unused for this long are dropped
}

// DefaultSenderConfig follows Telegram's documented bot limits.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		GlobalRate:  rate.Limit(30),
		GlobalBurst: 30,
		ChatRate:    rate.Limit(1),
		ChatBurst:   5,
		ChatIdle:    10 * time.Minute,
	}
}

type chatLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Sender performs rate-limited outbound calls. It implements
// delivery.Transport.
type Sender struct {
	api     BotAPI
	config  SenderConfig
	metrics Metrics

	globalLimiter *rate.Limiter
	chatLimiters  map[int64]*chatLimiter
	limitersMu    sync.Mutex
	now           func() time.Time
}

func NewSender(api BotAPI, config SenderConfig, metrics Metrics) *Sender {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Sender{
		api:           api,
		config:        config,
		metrics:       metrics,
		globalLimiter: rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		chatLimiters:  make(map[int64]*chatLimiter),
		now:           time.Now,
	}
}

// getChatLimiter gets or creates a rate limiter for a specific chat
func (s *Sender) getChatLimiter(chatID int64) *rate.Limiter {
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()

	cl, exists := s.chatLimiters[chatID]
	if !exists {
		cl = &chatLimiter{limiter: rate.NewLimiter(s.config.ChatRate, s.config.ChatBurst)}
		s.chatLimiters[chatID] = cl
	}
	cl.lastSeen = s.now()
	return cl.limiter
}

// SweepLimiters drops per-chat limiters idle for longer than ChatIdle and
// returns how many were removed.
func (s *Sender) SweepLimiters() int {
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()

	cutoff := s.now().Add(-s.config.ChatIdle)
	removed := 0
	for chatID, cl := range s.chatLimiters {
		if cl.lastSeen.Before(cutoff) {
			delete(s.chatLimiters, chatID)
			removed++
		}
	}
	return removed
}

func (s *Sender) limiterCount() int {
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()
	return len(s.chatLimiters)
}

func (s *Sender) wait(chatID int64) error {
	if err := s.reserve(s.globalLimiter, "global"); err != nil {
		return err
	}
	return s.reserve(s.getChatLimiter(chatID), "chat")
}

func (s *Sender) reserve(limiter *rate.Limiter, limitType string) error {
	r := limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("%s rate limiter rejected the request", limitType)
	}
	if d := r.Delay(); d > 0 {
		s.metrics.RecordRateLimitWait(limitType)
		time.Sleep(d)
	}
	return nil
}

// rateLimitedSend sends a message with rate limiting
func (s *Sender) rateLimitedSend(chatID int64, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := s.wait(chatID); err != nil {
		return tgbotapi.Message{}, err
	}

	logger.Debug("Sending rate-limited message", map[string]interface{}{
		"chat_id": chatID,
	})
	return s.api.Send(c)
}

// rateLimitedRequest is used for calls whose result is not a Message.
func (s *Sender) rateLimitedRequest(chatID int64, c tgbotapi.Chattable) error {
	if err := s.wait(chatID); err != nil {
		return err
	}

	resp, err := s.api.Request(c)
	if err != nil {
		return err
	}
	if resp != nil && !resp.Ok {
		return fmt.Errorf("telegram request failed: %s", resp.Description)
	}
	return nil
}

// SendText sends text without markup parsing. Quote text goes through here
// since authors and quotes may contain Markdown control characters.
func (s *Sender) SendText(chatID int64, text string) (int, error) {
	msg, err := s.rateLimitedSend(chatID, tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// SendNotice sends Markdown-formatted service copy.
func (s *Sender) SendNotice(chatID int64, text string) (int, error) {
	return s.SendMarkup(chatID, text, nil)
}

// SendMarkup sends Markdown text with an optional keyboard.
func (s *Sender) SendMarkup(chatID int64, text string, markup interface{}) (int, error) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		m.ReplyMarkup = markup
	}

	msg, err := s.rateLimitedSend(chatID, m)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (s *Sender) EditNotice(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	return s.rateLimitedRequest(chatID, edit)
}

func (s *Sender) DeleteMessage(chatID int64, messageID int) error {
	return s.rateLimitedRequest(chatID, tgbotapi.NewDeleteMessage(chatID, messageID))
}

// SendPhoto uploads materialized media with a plain-text caption.
func (s *Sender) SendPhoto(chatID int64, m *media.Media, caption string) error {
	if m == nil {
		return fmt.Errorf("no media to send")
	}

	var file tgbotapi.RequestFileData
	if m.OnDisk() {
		file = tgbotapi.FilePath(m.Path)
	} else {
		file = tgbotapi.FileBytes{Name: m.Name, Bytes: m.Data}
	}

	photo := tgbotapi.NewPhoto(chatID, file)
	photo.Caption = caption

	_, err := s.rateLimitedSend(chatID, photo)
	return err
}

// SendPhotoFile sends a local photo with a Markdown caption and keyboard.
func (s *Sender) SendPhotoFile(chatID int64, path, caption string, markup interface{}) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	photo.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		photo.ReplyMarkup = markup
	}

	_, err := s.rateLimitedSend(chatID, photo)
	return err
}

func (s *Sender) SendVideoFile(chatID int64, path, caption string) error {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
	video.Caption = caption
	video.ParseMode = tgbotapi.ModeMarkdown
	video.SupportsStreaming = true

	_, err := s.rateLimitedSend(chatID, video)
	return err
}

// SendAlbum sends local photos as one media group. The caption is attached
// to the first photo, which is how Telegram displays an album caption.
func (s *Sender) SendAlbum(chatID int64, paths []string, caption string) error {
	if len(paths) == 0 {
		return fmt.Errorf("album is empty")
	}

	files := make([]interface{}, 0, len(paths))
	for i, path := range paths {
		photo := tgbotapi.NewInputMediaPhoto(tgbotapi.FilePath(path))
		if i == 0 {
			photo.Caption = caption
			photo.ParseMode = tgbotapi.ModeMarkdown
		}
		files = append(files, photo)
	}

	if err := s.wait(chatID); err != nil {
		return err
	}

	logger.Debug("Sending media group", map[string]interface{}{
		"chat_id": chatID,
		"photos":  len(paths),
		"first":   filepath.Base(paths[0]),
	})

	_, err := s.api.SendMediaGroup(tgbotapi.NewMediaGroup(chatID, files))
	return err
}
