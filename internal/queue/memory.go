package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const defaultBuffer = 256

type memoryQueue struct {
	workers    int
	maxRetries int

	ch   chan *Message
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewMemoryQueue builds an in-process queue with the given worker count
// and per-message retry budget.
func NewMemoryQueue(workers, maxRetries int) Queue {
	if workers <= 0 {
		workers = 1
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &memoryQueue{
		workers:    workers,
		maxRetries: maxRetries,
		ch:         make(chan *Message, defaultBuffer),
		done:       make(chan struct{}),
	}
}

func (q *memoryQueue) Publish(ctx context.Context, body []byte) error {
	msg := &Message{ID: uuid.NewString(), Body: body, Attempt: 1}
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- msg:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *memoryQueue) Start(ctx context.Context, handler Handler) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}
}

func (q *memoryQueue) worker(ctx context.Context, handler Handler) {
	defer q.wg.Done()
	for {
		select {
		case msg := <-q.ch:
			q.handle(ctx, handler, msg)
		case <-q.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (q *memoryQueue) handle(ctx context.Context, handler Handler, msg *Message) {
	err := handler(ctx, msg)
	if err == nil {
		return
	}
	logger := logutil.GetLogger(ctx).With(
		zap.String("msg_id", msg.ID), zap.Int("attempt", msg.Attempt))
	if msg.Attempt > q.maxRetries {
		logger.Error("message dropped after retry budget", zap.Error(err))
		return
	}
	logger.Error("message handler failed, requeue", zap.Error(err))
	retry := &Message{ID: msg.ID, Body: msg.Body, Attempt: msg.Attempt + 1}
	// never block a worker on the retry send: with a full buffer every
	// worker could end up stuck here with nobody left to consume
	select {
	case q.ch <- retry:
	case <-q.done:
	default:
		logger.Error("retry buffer full, message dropped", zap.Error(err))
	}
}

func (q *memoryQueue) Stop() {
	q.once.Do(func() {
		close(q.done)
	})
	q.wg.Wait()
}
