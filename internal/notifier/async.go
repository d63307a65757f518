package notifier

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/rocketscienceinc/damas-backend/internal/entity"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notifier is closed")
)

// Async delivers snapshots to next from a single background worker, in the order they were queued.
// Notify only enqueues, so a slow next never holds up the caller.
type Async struct {
	logger *zap.Logger
	next   Notifier

	mu     sync.RWMutex
	closed bool
	queue  chan entity.MatchSnapshot
	done   chan struct{}
}

func NewAsync(logger *zap.Logger, next Notifier, size int) *Async {
	if size <= 0 {
		size = 1
	}

	async := &Async{
		logger: logger.With(zap.String("component", "async_notifier")),
		next:   next,
		queue:  make(chan entity.MatchSnapshot, size),
		done:   make(chan struct{}),
	}

	go async.run()

	return async
}

func (that *Async) Notify(_ context.Context, snapshot entity.MatchSnapshot) error {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if that.closed {
		return ErrClosed
	}

	select {
	case that.queue <- snapshot:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting snapshots and waits until the queued ones are delivered.
func (that *Async) Close() {
	that.mu.Lock()
	if !that.closed {
		that.closed = true
		close(that.queue)
	}
	that.mu.Unlock()

	<-that.done
}

func (that *Async) run() {
	defer close(that.done)

	for snapshot := range that.queue {
		if err := that.next.Notify(context.Background(), snapshot); err != nil {
			that.logger.Error("failed to deliver notification",
				zap.String("match_id", snapshot.ID),
				zap.String("status", string(snapshot.Status)),
				zap.Error(err),
			)
		}
	}
}
