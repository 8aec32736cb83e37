package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrAlreadyStarted is returned by Loop.Start when the loop is running.
var ErrAlreadyStarted = errors.New("presence: loop already started")

// EventHandler receives the events of one successful Tick.
type EventHandler func(events []Event)

// LoopOption is a functional option for configuring a Loop.
type LoopOption func(*Loop)

// WithPrime makes the loop adopt the current roster before the first
// interval elapses and hand it to fn. A failed prime is logged and the loop
// carries on with an empty snapshot.
func WithPrime(fn func(names []string)) LoopOption {
	return func(l *Loop) {
		l.prime = fn
	}
}

// Loop drives Monitor.Tick at a fixed interval on a single goroutine, so
// ticks never overlap. It is started and stopped explicitly by its owner.
type Loop struct {
	monitor  *Monitor
	interval time.Duration
	handler  EventHandler
	prime    func(names []string)
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewLoop constructs a stopped Loop. A nil logger defaults to slog.Default().
func NewLoop(m *Monitor, interval time.Duration, handler EventHandler, logger *slog.Logger, opts ...LoopOption) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loop{
		monitor:  m,
		interval: interval,
		handler:  handler,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the polling goroutine. The loop runs until Stop is called
// or ctx is cancelled.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return ErrAlreadyStarted
	}
	if l.interval <= 0 {
		return errors.New("presence: interval must be positive")
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.started = true

	go l.run(ctx, l.done)
	return nil
}

// Stop cancels the loop and blocks until any in-flight Tick has returned.
// It is safe to call Stop more than once, or on a loop that never started.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	if l.prime != nil {
		names, err := l.monitor.Prime(ctx)
		if err != nil {
			l.logger.Warn("initial roster fetch failed", "error", err)
		} else {
			l.prime(names)
		}
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("presence loop stopped")
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	events, err := l.monitor.Tick(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn("roster poll failed; retrying next interval", "error", err)
		return
	}
	if len(events) == 0 {
		return
	}
	l.logger.Debug("presence changed", "events", len(events))
	if l.handler != nil {
		l.handler(events)
	}
}
