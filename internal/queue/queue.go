// Package queue provides a thread-safe, bounded FIFO queue of outbound chat
// messages with long-poll support for the delivery worker.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// OutboundMessage is a single chat message waiting to be delivered.
type OutboundMessage struct {
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	Content     string    `json:"content"`
	Enqueued    time.Time `json:"enqueued"`
}

// Formatted returns a log-friendly representation in the form "[#channel] text".
func (m OutboundMessage) Formatted() string {
	return fmt.Sprintf("[#%s] %s", m.ChannelName, m.Content)
}

// Option is a functional option for configuring a Queue.
type Option func(*Queue)

// WithMaxSize sets the maximum number of messages the queue can hold.
// Values of zero or less are ignored; the default of 1000 is used instead.
func WithMaxSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxSize = n
		}
	}
}

// Queue is a thread-safe, bounded FIFO ring buffer. When the buffer is full
// the oldest message is dropped to make room. Callers waiting in Poll are
// woken whenever a message is enqueued.
type Queue struct {
	mu      sync.Mutex
	buf     []OutboundMessage
	head    int
	count   int
	dropped int
	maxSize int
	notify  chan struct{}
}

// New constructs a Queue with the provided options applied. The default
// maximum size is 1000 messages.
func New(opts ...Option) *Queue {
	q := &Queue{
		maxSize: 1000,
		notify:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.buf = make([]OutboundMessage, q.maxSize)
	return q
}

// Enqueue appends msg, discarding the oldest message when full. It never
// blocks.
func (q *Queue) Enqueue(msg OutboundMessage) {
	q.mu.Lock()

	if q.count == q.maxSize {
		q.buf[q.head] = OutboundMessage{}
		q.head = (q.head + 1) % q.maxSize
		q.count--
		q.dropped++
	}

	tail := (q.head + q.count) % q.maxSize
	q.buf[tail] = msg
	q.count++

	// Wake every waiter by closing the current channel and replacing it.
	oldNotify := q.notify
	q.notify = make(chan struct{})

	q.mu.Unlock()

	close(oldNotify)
}

// take removes up to limit messages from the head. The caller must hold q.mu.
func (q *Queue) take(limit int) []OutboundMessage {
	if q.count == 0 {
		return nil
	}
	n := q.count
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]OutboundMessage, n)
	for i := 0; i < n; i++ {
		idx := (q.head + i) % q.maxSize
		out[i] = q.buf[idx]
		q.buf[idx] = OutboundMessage{}
	}
	q.head = (q.head + n) % q.maxSize
	q.count -= n
	return out
}

// Poll returns up to limit messages in FIFO order, blocking until at least
// one is available, the timeout expires, or ctx is cancelled. A limit of
// zero or less returns everything queued. Each message is returned once.
// Poll returns nil, not an error, on timeout or cancellation.
func (q *Queue) Poll(ctx context.Context, timeout time.Duration, limit int) []OutboundMessage {
	q.mu.Lock()
	if msgs := q.take(limit); len(msgs) > 0 {
		q.mu.Unlock()
		return msgs
	}
	// Capture notify under the lock so a concurrent Enqueue cannot be missed.
	notifyCh := q.notify
	q.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			return nil
		case <-notifyCh:
			q.mu.Lock()
			msgs := q.take(limit)
			notifyCh = q.notify
			q.mu.Unlock()
			if len(msgs) > 0 {
				return msgs
			}
		}
	}
}

// Len returns the current number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Dropped returns how many messages have been discarded because the queue
// was full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
