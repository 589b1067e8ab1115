package write_buffer

import (
	"context"
	"fmt"
	"github.com/Avi18971911/Lantern/pkg/metrics"
	"github.com/Avi18971911/Lantern/pkg/profile/model"
	"github.com/Avi18971911/Lantern/pkg/store"
	"go.uber.org/zap"
	"sync"
	"time"
)

const WriteQueueSize = 30
const flushTimeOut = 10 * time.Second
const flushInterval = 2 * time.Second
const droppedAfterClose = "buffer_closed"

// ProfileWriteBuffer queues profile snapshots and writes them to a store in the background.
// Only the newest snapshot per token is kept while queued.
type ProfileWriteBuffer interface {
	Persist(doc model.ProfileDocument)
	Start(ctx context.Context)
	Close(ctx context.Context) error
}

type Option func(*ProfileWriteBufferImpl)

func WithQueueSize(size int) Option {
	return func(wb *ProfileWriteBufferImpl) {
		wb.queueSize = size
	}
}

func WithFlushInterval(interval time.Duration) Option {
	return func(wb *ProfileWriteBufferImpl) {
		wb.flushInterval = interval
	}
}

func WithFlushTimeout(timeout time.Duration) Option {
	return func(wb *ProfileWriteBufferImpl) {
		wb.flushTimeout = timeout
	}
}

func WithMetrics(m *metrics.ProfilerMetrics) Option {
	return func(wb *ProfileWriteBufferImpl) {
		wb.metrics = m
	}
}

type ProfileWriteBufferImpl struct {
	writeQueue    map[string]model.ProfileDocument
	order         []string
	store         store.ProfileStore
	queueSize     int
	flushInterval time.Duration
	flushTimeout  time.Duration
	metrics       *metrics.ProfilerMetrics
	logger        *zap.Logger
	mu            sync.Mutex
	closed        bool
	// flushMu serializes writes so snapshots of one token reach the store in queue order
	flushMu  sync.Mutex
	flushes  sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewProfileWriteBufferImpl(
	profileStore store.ProfileStore,
	logger *zap.Logger,
	opts ...Option,
) *ProfileWriteBufferImpl {
	wb := &ProfileWriteBufferImpl{
		writeQueue:    make(map[string]model.ProfileDocument),
		store:         profileStore,
		queueSize:     WriteQueueSize,
		flushInterval: flushInterval,
		flushTimeout:  flushTimeOut,
		logger:        logger,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(wb)
	}
	return wb
}

// Persist never blocks on the store. A snapshot replaces any queued snapshot of the same token.
// Once Close has begun, snapshots are dropped and counted.
func (wb *ProfileWriteBufferImpl) Persist(doc model.ProfileDocument) {
	wb.mu.Lock()
	if wb.closed {
		wb.mu.Unlock()
		wb.metrics.Dropped(droppedAfterClose)
		wb.logger.Warn(
			"Dropped profile snapshot persisted after the write buffer closed",
			zap.String("token", doc.Token),
			zap.Uint64("revision", doc.Revision),
		)
		return
	}
	if _, queued := wb.writeQueue[doc.Token]; !queued {
		wb.order = append(wb.order, doc.Token)
	}
	wb.writeQueue[doc.Token] = doc
	full := len(wb.writeQueue) > wb.queueSize
	wb.mu.Unlock()

	if full {
		wb.flushes.Add(1)
		go func() {
			defer wb.flushes.Done()
			if err := wb.flushToStore(); err != nil {
				wb.logger.Error("Failed to flush profiles to store", zap.Error(err))
			}
		}()
	}
}

// Start flushes on a ticker until ctx is done or Close is called.
func (wb *ProfileWriteBufferImpl) Start(ctx context.Context) {
	go func() {
		defer close(wb.done)
		ticker := time.NewTicker(wb.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-wb.stop:
				return
			case <-ticker.C:
				if err := wb.flushToStore(); err != nil {
					wb.logger.Error("Failed to flush profiles to store", zap.Error(err))
				}
			}
		}
	}()
}

// Close stops the ticker, waits for in-flight flushes and writes whatever is still queued.
func (wb *ProfileWriteBufferImpl) Close(ctx context.Context) error {
	wb.stopOnce.Do(func() {
		wb.mu.Lock()
		wb.closed = true
		wb.mu.Unlock()
		close(wb.stop)
	})

	waited := make(chan struct{})
	go func() {
		wb.flushes.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		return fmt.Errorf("error waiting for in-flight flushes: %w", ctx.Err())
	}

	if err := wb.flushToStore(); err != nil {
		return fmt.Errorf("error flushing remaining profiles: %w", err)
	}
	return nil
}

func (wb *ProfileWriteBufferImpl) Len() int {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	return len(wb.writeQueue)
}

func (wb *ProfileWriteBufferImpl) drain() []model.ProfileDocument {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	docs := make([]model.ProfileDocument, 0, len(wb.order))
	for _, token := range wb.order {
		docs = append(docs, wb.writeQueue[token])
	}
	wb.writeQueue = make(map[string]model.ProfileDocument)
	wb.order = nil
	return docs
}

func (wb *ProfileWriteBufferImpl) flushToStore() error {
	wb.flushMu.Lock()
	defer wb.flushMu.Unlock()

	docs := wb.drain()
	if len(docs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), wb.flushTimeout)
	defer cancel()

	if err := wb.store.SaveBatch(ctx, docs); err != nil {
		wb.metrics.StorageError()
		return fmt.Errorf("error saving %d profiles: %w", len(docs), err)
	}
	wb.metrics.Flushed(len(docs))
	return nil
}
