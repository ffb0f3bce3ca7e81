package telegram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/quotebot/quotebot/internal/consts"
	"github.com/quotebot/quotebot/internal/logger"
)

func mainMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(consts.ButtonQuote),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(consts.ButtonBookClub),
			tgbotapi.NewKeyboardButton(consts.ButtonGame),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(consts.ButtonAboutMe),
		),
	)
}

func contactButton(label string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(label, consts.ContactURL),
		),
	)
}

func (b *Bot) handleStart(chatID int64) error {
	_, err := b.sender.SendMarkup(chatID, consts.WelcomeMessage, mainMenu())
	return err
}

// withLoading shows a loading notice while fn runs and removes it afterwards.
func (b *Bot) withLoading(chatID int64, notice string, fn func() error) error {
	loadingID, err := b.sender.SendNotice(chatID, notice)
	if err != nil {
		logger.WithChat(chatID, "loading").WithError(err).Warn("Failed to send loading message")
	}
	defer func() {
		if loadingID == 0 {
			return
		}
		if err := b.sender.DeleteMessage(chatID, loadingID); err != nil {
			logger.WithChat(chatID, "loading").WithError(err).Warn("Failed to delete loading message")
		}
	}()

	return fn()
}

func (b *Bot) pageFailed(chatID int64, action string, err error) error {
	b.recorder.RecordAction(chatID, action, map[string]interface{}{
		"error": err.Error(),
	})
	return err
}

func (b *Bot) handleBookClub(chatID int64) error {
	b.recorder.RecordAction(chatID, consts.ActionBookClubOpened, nil)

	err := b.withLoading(chatID, consts.LoadingClubMessage, func() error {
		photos, err := b.bookClubPhotos()
		if err != nil {
			return err
		}
		if len(photos) == 0 {
			_, err := b.sender.SendText(chatID, consts.NoPhotosMessage)
			return err
		}
		return b.sender.SendAlbum(chatID, photos, consts.BookClubCaption)
	})
	if err != nil {
		return b.pageFailed(chatID, consts.ActionBookClubError, err)
	}

	if _, err := b.sender.SendMarkup(chatID, consts.JoinClubPrompt, contactButton(consts.ButtonJoinClub)); err != nil {
		return b.pageFailed(chatID, consts.ActionBookClubError, err)
	}
	return nil
}

// bookClubPhotos lists up to MaxBookClubPhotos images in name order.
func (b *Bot) bookClubPhotos() ([]string, error) {
	dir := filepath.Join(b.config.AssetsDir, consts.BookClubPhotosDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read book club photos: %w", err)
	}

	var photos []string
	for _, entry := range entries {
		if entry.IsDir() || !isPhoto(entry.Name()) {
			continue
		}
		photos = append(photos, filepath.Join(dir, entry.Name()))
		if len(photos) == consts.MaxBookClubPhotos {
			break
		}
	}
	return photos, nil
}

func isPhoto(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func (b *Bot) handleAbout(chatID int64) error {
	b.recorder.RecordAction(chatID, consts.ActionAboutOpened, nil)

	path := filepath.Join(b.config.AssetsDir, consts.AboutPhotoPath)
	err := b.withLoading(chatID, consts.LoadingInfoMessage, func() error {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("about photo unavailable: %w", err)
		}
		return nil
	})
	if err == nil {
		err = b.sender.SendPhotoFile(chatID, path, consts.AboutCaption, contactButton(consts.ButtonBookSession))
	}
	if err != nil {
		return b.pageFailed(chatID, consts.ActionAboutError, err)
	}
	return nil
}

func (b *Bot) handleGame(ctx context.Context, chatID int64) error {
	b.recorder.RecordAction(chatID, consts.ActionGameOpened, nil)

	path := filepath.Join(b.config.AssetsDir, consts.GameVideoPath)
	err := b.withLoading(chatID, consts.LoadingInfoMessage, func() error {
		return b.sender.SendVideoFile(chatID, path, consts.GameCaption)
	})
	if err != nil {
		return b.pageFailed(chatID, consts.ActionGameError, err)
	}

	pause := time.Duration(consts.GameMessagePauseMS) * time.Millisecond
	last := len(consts.GameMessages) - 1
	for i, text := range consts.GameMessages {
		if i > 0 {
			b.pause(ctx, pause)
		}

		var markup interface{}
		if i == last {
			markup = contactButton(consts.ButtonPlay)
		}
		if _, err := b.sender.SendMarkup(chatID, text, markup); err != nil {
			return b.pageFailed(chatID, consts.ActionGameError, err)
		}
	}
	return nil
}
