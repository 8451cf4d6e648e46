package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryQueueDelivers(t *testing.T) {
	q := NewMemoryQueue(2, 0)
	defer q.Stop()

	var mu sync.Mutex
	got := map[string]int{}
	done := make(chan struct{}, 3)
	q.Start(context.Background(), func(ctx context.Context, msg *Message) error {
		mu.Lock()
		got[string(msg.Body)]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	})

	for _, body := range []string{"a", "b", "c"} {
		require.NoError(t, q.Publish(context.Background(), []byte(body)))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for delivery")
		}
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, got)
}

func TestMemoryQueueRedeliversOnError(t *testing.T) {
	q := NewMemoryQueue(1, 2)
	defer q.Stop()

	attempts := make(chan int, 8)
	q.Start(context.Background(), func(ctx context.Context, msg *Message) error {
		attempts <- msg.Attempt
		if msg.Attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, q.Publish(context.Background(), []byte("retry-me")))
	seen := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		select {
		case a := <-attempts:
			seen = append(seen, a)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for redelivery")
		}
	}
	require.Equal(t, []int{1, 2, 3}, seen)
}

func TestMemoryQueueDropsAfterBudget(t *testing.T) {
	q := NewMemoryQueue(1, 1)
	defer q.Stop()

	attempts := make(chan int, 8)
	q.Start(context.Background(), func(ctx context.Context, msg *Message) error {
		attempts <- msg.Attempt
		return errors.New("always fails")
	})

	require.NoError(t, q.Publish(context.Background(), []byte("doomed")))
	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for attempt")
		}
	}
	select {
	case a := <-attempts:
		t.Fatalf("unexpected attempt %d after budget exhausted", a)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMemoryQueueRetryDoesNotBlockOnFullBuffer(t *testing.T) {
	q := NewMemoryQueue(1, 5).(*memoryQueue)
	defer q.Stop()

	// saturate the buffer so the retry send cannot go through
	for i := 0; i < defaultBuffer; i++ {
		q.ch <- &Message{ID: "filler", Body: []byte("x"), Attempt: 1}
	}

	finished := make(chan struct{})
	go func() {
		q.handle(context.Background(),
			func(ctx context.Context, msg *Message) error { return errors.New("transient") },
			&Message{ID: "m", Body: []byte("y"), Attempt: 1})
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("retry send blocked on a full buffer")
	}
	// the retry was dropped, not queued behind the fillers
	require.Equal(t, defaultBuffer, len(q.ch))
}

func TestMemoryQueuePublishAfterStop(t *testing.T) {
	q := NewMemoryQueue(1, 0)
	q.Start(context.Background(), func(ctx context.Context, msg *Message) error { return nil })
	q.Stop()
	require.ErrorIs(t, q.Publish(context.Background(), []byte("late")), ErrClosed)
}
