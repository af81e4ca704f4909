package storefront

import (
	"context"
	"sync"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

type EventProcessor interface {
	ProcessEvent(ctx context.Context, event *stripe.Event) error
}

// WorkerPool bounds how many payment events are processed at once so a burst
// of notifications cannot stampede the cart store or the remote API.
type WorkerPool struct {
	workers   chan struct{}
	tasks     chan func()
	logger    *zap.Logger
	processor EventProcessor

	mu     sync.Mutex
	closed bool
}

func NewWorkerPool(size int, processor EventProcessor, logger *zap.Logger) *WorkerPool {
	wp := &WorkerPool{
		workers:   make(chan struct{}, size),
		tasks:     make(chan func(), 1000),
		logger:    logger,
		processor: processor,
	}

	for i := 0; i < size; i++ {
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	for task := range wp.tasks {
		wp.workers <- struct{}{}
		task()
		<-wp.workers
	}
}

// Submit enqueues the event. An event arriving after Shutdown is dropped and
// logged; the NATS unsubscribe and the shutdown are not atomic, so a late
// delivery is possible.
func (wp *WorkerPool) Submit(ctx context.Context, event *stripe.Event) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.closed {
		wp.logger.Warn("Worker pool is shut down, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID))
		return
	}

	wp.tasks <- func() {
		if err := wp.processor.ProcessEvent(ctx, event); err != nil {
			wp.logger.Error("Failed to process event",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID))
		}
	}
}

func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.closed {
		return
	}
	wp.closed = true
	close(wp.tasks)
}
