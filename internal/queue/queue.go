package queue

import (
	"context"
	"errors"
)

// ErrClosed is returned by Publish after Stop.
var ErrClosed = errors.New("queue closed")

// Message is a single unit of work. A message redelivered after a
// handler failure carries an incremented Attempt, so handlers must be
// idempotent.
type Message struct {
	ID      string
	Body    []byte
	Attempt int
}

// Handler processes one message. Returning an error requeues the
// message until the retry budget is exhausted.
type Handler func(ctx context.Context, msg *Message) error

// Queue is an at-least-once work queue.
type Queue interface {
	Publish(ctx context.Context, body []byte) error
	Start(ctx context.Context, handler Handler)
	Stop()
}
