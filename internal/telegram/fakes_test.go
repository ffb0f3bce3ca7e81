package telegram

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/quotebot/quotebot/internal/database"
	"github.com/quotebot/quotebot/internal/delivery"
	"golang.org/x/time/rate"
)

type fakeAPI struct {
	mu         sync.Mutex
	sent       []tgbotapi.Chattable
	requests   []tgbotapi.Chattable
	groups     []tgbotapi.MediaGroupConfig
	nextID     int
	sendErr    error
	requestErr error
	notOk      bool
	updates    chan tgbotapi.Update
	stopOnce   sync.Once
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 10)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	f.requests = append(f.requests, c)
	if f.notOk {
		return &tgbotapi.APIResponse{Ok: false, Description: "Bad Request: message to delete not found"}, nil
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) SendMediaGroup(config tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.groups = append(f.groups, config)
	return nil, nil
}

func (f *fakeAPI) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.stopOnce.Do(func() { close(f.updates) })
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeAPI) deletedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, c := range f.requests {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok {
			out = append(out, d.MessageID)
		}
	}
	return out
}

type fakeDeliverer struct {
	mu    sync.Mutex
	chats []int64
}

func (d *fakeDeliverer) Deliver(ctx context.Context, chatID int64) delivery.Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chats = append(d.chats, chatID)
	return delivery.Degraded
}

func (d *fakeDeliverer) delivered() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int64(nil), d.chats...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	users   []database.User
	actions []string
	data    []map[string]interface{}
	touched int
}

func (r *fakeRecorder) RecordUser(u database.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, u)
}

func (r *fakeRecorder) TouchActivity(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched++
}

func (r *fakeRecorder) RecordAction(chatID int64, action string, data map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
	r.data = append(r.data, data)
}

type fakeStats struct {
	calls int
	err   error
}

func (s *fakeStats) GetStats() (*database.Stats, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &database.Stats{TotalUsers: 3, TotalActions: 42, ActiveDays: 2}, nil
}

func (s *fakeStats) GetPopularActions(limit int) ([]database.ActionCount, error) {
	return []database.ActionCount{
		{Action: "message_received", Count: 10},
		{Action: "quote_requested", Count: 4},
	}, nil
}

func (s *fakeStats) GetDailyStats(days int) ([]database.DailyStat, error) {
	return []database.DailyStat{
		{Day: "2024-03-02", Actions: 12, UniqueUsers: 2},
		{Day: "2024-03-01", Actions: 30, UniqueUsers: 3},
	}, nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	waits    map[string]int
	commands []string
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{waits: make(map[string]int)}
}

func (m *fakeMetrics) RecordMessage(command string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, command)
}

func (m *fakeMetrics) RecordRateLimitWait(limitType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waits[limitType]++
}

func (m *fakeMetrics) UpdateQueueDepth(int) {}

var errSend = errors.New("telegram: Bad Request: wrong file identifier")

func unlimitedSenderConfig() SenderConfig {
	return SenderConfig{
		GlobalRate:  rate.Inf,
		GlobalBurst: 1,
		ChatRate:    rate.Inf,
		ChatBurst:   1,
		ChatIdle:    time.Minute,
	}
}

func textMessage(chatID, fromID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: fromID, UserName: "reader", FirstName: "Anna", LastName: "K"},
		Text: text,
	}
}
