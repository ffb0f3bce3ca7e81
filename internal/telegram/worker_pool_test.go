package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	mu       sync.Mutex
	handled  []int64
	failed   []int64
	err      error
	panicFor int64
	block    chan struct{}
}

func (h *stubHandler) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if h.block != nil {
		<-h.block
	}
	if message.Chat.ID == h.panicFor {
		panic("handler exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, message.Chat.ID)
	return h.err
}

func (h *stubHandler) sendErrorResponse(chatID int64, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed = append(h.failed, chatID)
}

func (h *stubHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled), len(h.failed)
}

func smallPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MessageWorkers:   2,
		MessageQueueSize: 10,
		MaxConcurrentOps: 2,
		ShutdownTimeout:  time.Second,
	}
}

func chatMessage(chatID int64) *tgbotapi.Message {
	return &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}}
}

func TestWorkerPoolCreation(t *testing.T) {
	config := DefaultWorkerPoolConfig()
	wp := NewWorkerPool(&stubHandler{}, config)

	require.NotNil(t, wp)
	assert.Equal(t, config.MessageWorkers, wp.workerCount)
	assert.Equal(t, config.MaxConcurrentOps, wp.maxConcurrentOps)
	assert.Equal(t, config.MessageQueueSize, cap(wp.messageQueue))
}

func TestWorkerPoolStartStop(t *testing.T) {
	wp := NewWorkerPool(&stubHandler{}, smallPoolConfig())

	require.NoError(t, wp.Start())
	assert.True(t, wp.GetStats()["started"].(bool))
	assert.Error(t, wp.Start(), "starting twice should fail")

	require.NoError(t, wp.Stop())
	assert.False(t, wp.GetStats()["started"].(bool))
	assert.Error(t, wp.Stop(), "stopping twice should fail")
}

func TestWorkerPoolSubmitBeforeStart(t *testing.T) {
	wp := NewWorkerPool(&stubHandler{}, smallPoolConfig())

	assert.Error(t, wp.SubmitMessage(chatMessage(1)))
}

func TestWorkerPoolProcessesMessages(t *testing.T) {
	h := &stubHandler{}
	wp := NewWorkerPool(h, smallPoolConfig())
	require.NoError(t, wp.Start())

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, wp.SubmitMessage(chatMessage(i)))
	}
	require.NoError(t, wp.Stop())

	handled, failed := h.counts()
	assert.Equal(t, 5, handled, "queued messages are drained on stop")
	assert.Equal(t, 0, failed)
}

func TestWorkerPoolReportsHandlerErrors(t *testing.T) {
	h := &stubHandler{err: errors.New("boom")}
	wp := NewWorkerPool(h, smallPoolConfig())
	require.NoError(t, wp.Start())

	require.NoError(t, wp.SubmitMessage(chatMessage(3)))
	require.NoError(t, wp.Stop())

	assert.Equal(t, []int64{3}, h.failed)
}

func TestWorkerPoolSurvivesPanic(t *testing.T) {
	h := &stubHandler{panicFor: 13}
	config := smallPoolConfig()
	config.MessageWorkers = 1
	wp := NewWorkerPool(h, config)
	require.NoError(t, wp.Start())

	require.NoError(t, wp.SubmitMessage(chatMessage(13)))
	require.NoError(t, wp.SubmitMessage(chatMessage(14)))
	require.NoError(t, wp.Stop())

	assert.Equal(t, []int64{14}, h.handled)
}

func TestWorkerPoolQueueFull(t *testing.T) {
	h := &stubHandler{block: make(chan struct{})}
	wp := NewWorkerPool(h, WorkerPoolConfig{
		MessageWorkers:   1,
		MessageQueueSize: 1,
		MaxConcurrentOps: 1,
		ShutdownTimeout:  time.Second,
	})
	require.NoError(t, wp.Start())

	require.NoError(t, wp.SubmitMessage(chatMessage(1)))
	require.Eventually(t, func() bool { return wp.QueueDepth() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, wp.SubmitMessage(chatMessage(2)))
	assert.Error(t, wp.SubmitMessage(chatMessage(3)))

	close(h.block)
	require.NoError(t, wp.Stop())
	handled, _ := h.counts()
	assert.Equal(t, 2, handled)
}

func TestWorkerPoolShutdownTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	h := &stubHandler{block: block}
	config := smallPoolConfig()
	config.ShutdownTimeout = 50 * time.Millisecond
	wp := NewWorkerPool(h, config)
	require.NoError(t, wp.Start())

	require.NoError(t, wp.SubmitMessage(chatMessage(1)))
	require.Eventually(t, func() bool { return wp.QueueDepth() == 0 }, time.Second, 5*time.Millisecond)

	assert.Error(t, wp.Stop())
}
