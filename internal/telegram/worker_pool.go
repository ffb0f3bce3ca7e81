package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/quotebot/quotebot/internal/logger"
)

// MessageHandler processes one inbound message.
type MessageHandler interface {
	handleMessage(ctx context.Context, message *tgbotapi.Message) error
	sendErrorResponse(chatID int64, err error)
}

// WorkerPool processes messages concurrently so a slow delivery in one chat
// never blocks the others.
type WorkerPool struct {
	handler      MessageHandler
	messageQueue chan *tgbotapi.Message
	workerCount  int

	// Concurrency control
	maxConcurrentOps int
	opSemaphore      chan struct{}
	shutdownTimeout  time.Duration

	// Lifecycle management
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.RWMutex
}

// WorkerPoolConfig holds configuration for the worker pool
type WorkerPoolConfig struct {
	MessageWorkers   int // Number of workers processing messages
	MessageQueueSize int // Size of message queue buffer
	MaxConcurrentOps int // Maximum concurrent handlers doing outbound calls
	ShutdownTimeout  time.Duration
}

// DefaultWorkerPoolConfig returns a sensible default configuration
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		MessageWorkers:   20,
		MessageQueueSize: 200,
		MaxConcurrentOps: 20,
		ShutdownTimeout:  30 * time.Second,
	}
}

func NewWorkerPool(handler MessageHandler, config WorkerPoolConfig) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		handler:          handler,
		messageQueue:     make(chan *tgbotapi.Message, config.MessageQueueSize),
		workerCount:      config.MessageWorkers,
		maxConcurrentOps: config.MaxConcurrentOps,
		opSemaphore:      make(chan struct{}, config.MaxConcurrentOps),
		shutdownTimeout:  config.ShutdownTimeout,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Start initializes and starts all worker goroutines
func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return fmt.Errorf("worker pool already started")
	}

	logger.Info("Starting worker pool", map[string]interface{}{
		"message_workers":    wp.workerCount,
		"max_concurrent_ops": wp.maxConcurrentOps,
		"message_queue_size": cap(wp.messageQueue),
	})

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.messageWorker(i)
	}

	wp.started = true
	return nil
}

// Stop closes the queue and waits for queued and in-flight messages to
// finish. Work still running after the shutdown timeout is cancelled.
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.started {
		return fmt.Errorf("worker pool not started")
	}

	logger.InfoMsg("Stopping worker pool...")
	close(wp.messageQueue)
	wp.started = false

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		logger.InfoMsg("Worker pool stopped gracefully")
		return nil
	case <-time.After(wp.shutdownTimeout):
		wp.cancel()
		logger.Warn("Worker pool shutdown timed out", nil)
		return fmt.Errorf("worker pool shutdown timed out")
	}
}

// SubmitMessage adds a message to the processing queue
func (wp *WorkerPool) SubmitMessage(message *tgbotapi.Message) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if !wp.started {
		return fmt.Errorf("worker pool not started")
	}

	select {
	case wp.messageQueue <- message:
		logger.Debug("Message queued for processing", map[string]interface{}{
			"chat_id":    message.Chat.ID,
			"queue_size": len(wp.messageQueue),
		})
		return nil
	default:
		logger.Warn("Message queue full, dropping message", map[string]interface{}{
			"chat_id": message.Chat.ID,
		})
		return fmt.Errorf("message queue full")
	}
}

// QueueDepth returns the number of messages waiting for a worker.
func (wp *WorkerPool) QueueDepth() int {
	return len(wp.messageQueue)
}

func (wp *WorkerPool) messageWorker(workerID int) {
	defer wp.wg.Done()

	for {
		select {
		case message, ok := <-wp.messageQueue:
			if !ok {
				return
			}
			wp.process(message, workerID)

		case <-wp.ctx.Done():
			return
		}
	}
}

// process runs the handler under the concurrency limit. A panicking handler
// only loses its own message.
func (wp *WorkerPool) process(message *tgbotapi.Message, workerID int) {
	select {
	case wp.opSemaphore <- struct{}{}:
		defer func() { <-wp.opSemaphore }()
	case <-wp.ctx.Done():
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Message worker panic recovered", map[string]interface{}{
				"worker_id": workerID,
				"chat_id":   message.Chat.ID,
				"panic":     r,
			})
		}
	}()

	startTime := time.Now()

	if err := wp.handler.handleMessage(wp.ctx, message); err != nil {
		logger.Error("Error processing message", map[string]interface{}{
			"worker_id": workerID,
			"error":     err.Error(),
			"chat_id":   message.Chat.ID,
		})
		wp.handler.sendErrorResponse(message.Chat.ID, err)
	}

	logger.Debug("Message processed", map[string]interface{}{
		"worker_id": workerID,
		"chat_id":   message.Chat.ID,
		"duration":  time.Since(startTime).String(),
	})
}

// GetStats returns current worker pool statistics
func (wp *WorkerPool) GetStats() map[string]interface{} {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	return map[string]interface{}{
		"started":                wp.started,
		"message_queue_size":     len(wp.messageQueue),
		"message_queue_capacity": cap(wp.messageQueue),
		"active_operations":      len(wp.opSemaphore),
		"max_concurrent_ops":     wp.maxConcurrentOps,
		"message_workers":        wp.workerCount,
	}
}
