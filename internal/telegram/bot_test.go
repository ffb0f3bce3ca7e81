package telegram

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/quotebot/quotebot/internal/config"
	"github.com/quotebot/quotebot/internal/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID = 258095033

type testBot struct {
	*Bot
	api       *fakeAPI
	deliverer *fakeDeliverer
	recorder  *fakeRecorder
	metrics   *fakeMetrics
	pauses    []time.Duration
}

func newTestBot(t *testing.T, stats StatsSource) *testBot {
	t.Helper()

	api := newFakeAPI()
	tb := &testBot{
		api:       api,
		deliverer: &fakeDeliverer{},
		recorder:  &fakeRecorder{},
		metrics:   newFakeMetrics(),
	}
	cfg := &config.Config{AdminChatID: adminID, AssetsDir: t.TempDir()}

	tb.Bot = NewBot(cfg, api, NewSender(api, unlimitedSenderConfig(), tb.metrics), Deps{
		Deliverer: tb.deliverer,
		Recorder:  tb.recorder,
		Stats:     stats,
		Metrics:   tb.metrics,
	})
	tb.Bot.pause = func(ctx context.Context, d time.Duration) {
		tb.pauses = append(tb.pauses, d)
	}
	t.Cleanup(tb.Bot.statsCache.Close)
	return tb
}

func writeAsset(t *testing.T, dir, rel string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("asset"), 0o644))
}

func TestStartCommandSendsMenu(t *testing.T) {
	for _, cmd := range []string{consts.CommandStart, consts.CommandHelp} {
		t.Run(cmd, func(t *testing.T) {
			tb := newTestBot(t, nil)

			require.NoError(t, tb.handleMessage(context.Background(), textMessage(42, 42, cmd)))

			msgs := tb.api.messages()
			require.Len(t, msgs, 1)
			assert.Equal(t, consts.WelcomeMessage, msgs[0].Text)

			kb, ok := msgs[0].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
			require.True(t, ok)
			require.Len(t, kb.Keyboard, 3)
			assert.Equal(t, consts.ButtonQuote, kb.Keyboard[0][0].Text)
			assert.Equal(t, consts.ButtonBookClub, kb.Keyboard[1][0].Text)
			assert.Equal(t, consts.ButtonGame, kb.Keyboard[1][1].Text)
			assert.Equal(t, consts.ButtonAboutMe, kb.Keyboard[2][0].Text)
			assert.True(t, kb.ResizeKeyboard)
		})
	}
}

func TestEveryMessageIsTracked(t *testing.T) {
	tb := newTestBot(t, nil)

	require.NoError(t, tb.handleMessage(context.Background(), textMessage(42, 42, "hello there")))

	require.Len(t, tb.recorder.users, 1)
	u := tb.recorder.users[0]
	assert.Equal(t, int64(42), u.ChatID)
	assert.Equal(t, "reader", u.Username)
	assert.Equal(t, "Anna", u.FirstName)
	assert.Equal(t, "K", u.LastName)

	assert.Equal(t, []string{consts.ActionMessageReceived}, tb.recorder.actions)
	assert.Equal(t, "hello there", tb.recorder.data[0]["text"])
	assert.Equal(t, 1, tb.recorder.touched)
	assert.Equal(t, []string{""}, tb.metrics.commands)
}

func TestUnknownTextIsIgnored(t *testing.T) {
	tb := newTestBot(t, nil)

	require.NoError(t, tb.handleMessage(context.Background(), textMessage(42, 42, "what is this")))

	assert.Empty(t, tb.api.sent)
	assert.Empty(t, tb.deliverer.delivered())
}

func TestQuoteButtonStartsDelivery(t *testing.T) {
	tb := newTestBot(t, nil)

	require.NoError(t, tb.handleMessage(context.Background(), textMessage(42, 42, "  "+consts.ButtonQuote)))

	assert.Equal(t, []int64{42}, tb.deliverer.delivered())
	assert.Equal(t, []string{"quote"}, tb.metrics.commands)
}

func TestMessageWithoutSender(t *testing.T) {
	tb := newTestBot(t, nil)
	msg := &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}, Text: consts.CommandAdminTop}

	require.NoError(t, tb.handleMessage(context.Background(), msg))

	require.Len(t, tb.recorder.users, 1)
	assert.Equal(t, int64(7), tb.recorder.users[0].ChatID)
	msgs := tb.api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, consts.NoRightsMessage, msgs[0].Text)
}

func TestBookClub(t *testing.T) {
	tb := newTestBot(t, nil)
	for _, name := range []string{"g.jpg", "a.jpg", "b.JPG", "c.png", "d.jpeg", "e.jpg", "f.jpg", "notes.txt"} {
		writeAsset(t, tb.config.AssetsDir, filepath.Join(consts.BookClubPhotosDir, name))
	}

	require.NoError(t, tb.handleMessage(context.Background(), textMessage(42, 42, consts.ButtonBookClub)))

	require.Len(t, tb.api.groups, 1)
	group := tb.api.groups[0]
	require.Len(t, group.Media, consts.MaxBookClubPhotos)

	first := group.Media[0].(tgbotapi.InputMediaPhoto)
	assert.Equal(t, consts.BookClubCaption, first.Caption)
	assert.Equal(t, tgbotapi.FilePath(filepath.Join(tb.config.AssetsDir, consts.BookClubPhotosDir, "a.jpg")), first.Media)

	msgs := tb.api.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, consts.LoadingClubMessage, msgs[0].Text)
	assert.Equal(t, consts.JoinClubPrompt, msgs[1].Text)

	markup, ok := msgs[1].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	button := markup.InlineKeyboard[0][0]
	assert.Equal(t, consts.ButtonJoinClub, button.Text)
	require.NotNil(t, button.URL)
	assert.Equal(t, consts.ContactURL, *button.URL)

	assert.Equal(t, []int{1}, tb.api.deletedIDs(), "loading message is removed")
	assert.Contains(t, tb.recorder.actions, consts.ActionBookClubOpened)
}

func TestBookClubWithoutPhotos(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		tb := newTestBot(t, nil)
		require.NoError(t, os.MkdirAll(filepath.Join(tb.config.AssetsDir, consts.BookClubPhotosDir), 0o755))

		require.NoError(t, tb.handleMessage(context.Background(), textMessage(42, 42, consts.ButtonBookClub)))

		assert.Empty(t, tb.api.groups)
		msgs := tb.api.messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, consts.NoPhotosMessage, msgs[1].Text)
	})

	t.Run("missing directory", func(t *testing.T) {
		tb := newTestBot(t, nil)

		err := tb.handleMessage(context.Background(), textMessage(42, 42, consts.ButtonBookClub))
		require.Error(t, err)

		assert.Contains(t, tb.recorder.actions, consts.ActionBookClubError)
		assert.Equal(t, []int{1}, tb.api.deletedIDs())
	})
}

func TestAboutPage(t *testing.T) {
	t.Run("photo present", func(t *testing.T) {
		tb := newTestBot(t, nil)
		writeAsset(t, tb.config.AssetsDir, consts.AboutPhotoPath)

		require.NoError(t, tb.handleMessage(context.Background(), textMessage(42, 42, consts.ButtonAboutMe)))

		require.Len(t, tb.api.sent, 2)
		photo, ok := tb.api.sent[1].(tgbotapi.PhotoConfig)
		require.True(t, ok)
		assert.Equal(t, consts.AboutCaption, photo.Caption)

		markup, ok := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
		require.True(t, ok)
		assert.Equal(t, consts.ButtonBookSession, markup.InlineKeyboard[0][0].Text)
		assert.Equal(t, []int{1}, tb.api.deletedIDs())
	})

	t.Run("photo missing", func(t *testing.T) {
		tb := newTestBot(t, nil)

		require.Error(t, tb.handleMessage(context.Background(), textMessage(42, 42, consts.ButtonAboutMe)))
		assert.Contains(t, tb.recorder.actions, consts.ActionAboutError)
	})
}

func TestGamePage(t *testing.T) {
	tb := newTestBot(t, nil)
	writeAsset(t, tb.config.AssetsDir, consts.GameVideoPath)

	require.NoError(t, tb.handleMessage(context.Background(), textMessage(42, 42, consts.ButtonGame)))

	require.Len(t, tb.api.sent, 2+len(consts.GameMessages))
	video, ok := tb.api.sent[1].(tgbotapi.VideoConfig)
	require.True(t, ok)
	assert.Equal(t, consts.GameCaption, video.Caption)

	msgs := tb.api.messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, consts.GameMessages[len(consts.GameMessages)-1], last.Text)
	markup, ok := last.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, consts.ButtonPlay, markup.InlineKeyboard[0][0].Text)
	assert.Nil(t, msgs[1].ReplyMarkup)

	assert.Len(t, tb.pauses, len(consts.GameMessages)-1)
	assert.Equal(t, time.Second, tb.pauses[0])
	assert.Contains(t, tb.recorder.actions, consts.ActionGameOpened)
}

func TestGamePageSendFailure(t *testing.T) {
	tb := newTestBot(t, nil)
	tb.api.sendErr = errSend

	require.ErrorIs(t, tb.handleMessage(context.Background(), textMessage(42, 42, consts.ButtonGame)), errSend)
	assert.Contains(t, tb.recorder.actions, consts.ActionGameError)
}

func TestStartProcessesUpdates(t *testing.T) {
	tb := newTestBot(t, nil)
	tb.workerPool = NewWorkerPool(tb.Bot, WorkerPoolConfig{
		MessageWorkers:   2,
		MessageQueueSize: 10,
		MaxConcurrentOps: 2,
		ShutdownTimeout:  time.Second,
	})

	done := make(chan error, 1)
	go func() { done <- tb.Start(context.Background()) }()

	tb.api.updates <- tgbotapi.Update{UpdateID: 1}
	tb.api.updates <- tgbotapi.Update{UpdateID: 2, Message: textMessage(7, 7, consts.ButtonQuote)}
	tb.api.updates <- tgbotapi.Update{UpdateID: 3, Message: textMessage(8, 8, consts.ButtonQuote)}

	require.Eventually(t, func() bool {
		return len(tb.deliverer.delivered()) == 2
	}, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []int64{7, 8}, tb.deliverer.delivered())

	tb.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestStartReturnsOnContextCancel(t *testing.T) {
	tb := newTestBot(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- tb.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
	tb.Stop()
}
