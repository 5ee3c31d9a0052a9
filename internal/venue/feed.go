package venue

import (
	"context"
	"sync"
)

// Feed is a channel-backed Subscription. A producer goroutine calls Publish
// and Fail; the consumer calls Next. Only the newest unread update is kept.
type Feed[T any] struct {
	updates chan T
	errs    chan error
	done    chan struct{}
	once    sync.Once
	release func() error
}

// NewFeed returns an open Feed. release, when non-nil, runs once on Close.
func NewFeed[T any](release func() error) *Feed[T] {
	return &Feed[T]{
		updates: make(chan T, 1),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
		release: release,
	}
}

// Publish offers v to the consumer, replacing an unread stale update.
// It returns false once the feed is closed.
func (f *Feed[T]) Publish(v T) bool {
	select {
	case <-f.done:
		return false
	default:
	}
	for {
		select {
		case f.updates <- v:
			return true
		case <-f.done:
			return false
		default:
		}
		select {
		case <-f.updates:
		default:
		}
	}
}

// Fail delivers a terminal stream error. Later failures are dropped.
func (f *Feed[T]) Fail(err error) {
	select {
	case f.errs <- err:
	default:
	}
}

// Next returns the next update. Pending updates win over a pending failure.
func (f *Feed[T]) Next(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-f.updates:
		return v, nil
	default:
	}
	select {
	case v := <-f.updates:
		return v, nil
	case err := <-f.errs:
		f.Fail(err)
		return zero, err
	case <-f.done:
		return zero, ErrSubscriptionClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Done is closed when the feed is closed.
func (f *Feed[T]) Done() <-chan struct{} { return f.done }

// Close stops the feed. Only the first call runs release and may return its error.
func (f *Feed[T]) Close() error {
	var err error
	f.once.Do(func() {
		close(f.done)
		if f.release != nil {
			err = f.release()
		}
	})
	return err
}
