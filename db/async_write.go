package db

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"caricature_studio/logging"
)

const (
	DefaultQueueCapacity = 100
	DefaultDrainTimeout  = 30 * time.Second
)

// HistorySaver is the write side of Repository used by AsyncWriter.
type HistorySaver interface {
	SaveHistory(ctx context.Context, item HistoryItem) (HistoryItem, error)
}

// AsyncWriter saves history items off the request path with a buffered
// queue and one background goroutine.
//
// Usage:
//
//	w := NewAsyncWriter(repo, logger, DefaultAsyncWriterConfig())
//	w.Start()
//	defer w.Stop()
//	w.Enqueue(item)
type AsyncWriter struct {
	saver  HistorySaver
	logger *logging.Logger
	config AsyncWriterConfig

	queue   chan HistoryItem
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	started bool
	stopped bool
}

type AsyncWriterConfig struct {
	QueueCapacity int

	// DrainTimeout bounds how long Stop waits for queued writes.
	DrainTimeout time.Duration

	// WriteTimeout bounds a single SaveHistory call.
	WriteTimeout time.Duration
}

func DefaultAsyncWriterConfig() AsyncWriterConfig {
	return AsyncWriterConfig{
		QueueCapacity: DefaultQueueCapacity,
		DrainTimeout:  DefaultDrainTimeout,
		WriteTimeout:  5 * time.Second,
	}
}

func NewAsyncWriter(saver HistorySaver, logger *logging.Logger, config AsyncWriterConfig) *AsyncWriter {
	if config.QueueCapacity <= 0 {
		config.QueueCapacity = DefaultQueueCapacity
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = DefaultDrainTimeout
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncWriter{
		saver:  saver,
		logger: logger.Named("history-writer"),
		config: config,
		queue:  make(chan HistoryItem, config.QueueCapacity),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the background goroutine. Calling it twice is a no-op.
func (w *AsyncWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	w.wg.Add(1)
	go w.run()
}

func (w *AsyncWriter) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case item := <-w.queue:
			w.save(item)
		}
	}
}

func (w *AsyncWriter) drain() {
	for {
		select {
		case item := <-w.queue:
			w.save(item)
		default:
			return
		}
	}
}

func (w *AsyncWriter) save(item HistoryItem) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.WriteTimeout)
	defer cancel()
	if _, err := w.saver.SaveHistory(ctx, item); err != nil {
		w.logger.Error("failed to save history item",
			logging.UserID(item.UserID),
			zap.String("history_id", item.ID),
			zap.Error(err))
	}
}

// Enqueue queues item without blocking. When the queue is full, or the
// writer is not running, the item is saved synchronously instead so it is
// never dropped. Returns false only if that synchronous save failed.
func (w *AsyncWriter) Enqueue(item HistoryItem) bool {
	if w.tryQueue(item) {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.config.WriteTimeout)
	defer cancel()
	if _, err := w.saver.SaveHistory(ctx, item); err != nil {
		w.logger.Error("failed to save history item", logging.UserID(item.UserID), zap.Error(err))
		return false
	}
	return true
}

// tryQueue holds the lock while sending so Stop cannot slip between the
// running check and the send.
func (w *AsyncWriter) tryQueue(item HistoryItem) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started || w.stopped {
		return false
	}
	select {
	case w.queue <- item:
		return true
	default:
		w.logger.Warn("history queue full, saving synchronously", zap.Int("capacity", cap(w.queue)))
		return false
	}
}

// Pending returns the number of queued items.
func (w *AsyncWriter) Pending() int {
	return len(w.queue)
}

// Stop drains the queue and waits at most DrainTimeout. It returns false if
// the drain timed out.
func (w *AsyncWriter) Stop() bool {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return true
	}
	w.stopped = true
	w.mu.Unlock()

	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(w.config.DrainTimeout):
		w.logger.Warn("history writer drain timed out", zap.Int("pending", w.Pending()))
		return false
	}
}
