// Package publisher decouples event emission from event persistence.
// Services call Emit inline; delivery happens either synchronously or
// through a buffered channel drained by a background goroutine.
package publisher

import (
	"context"
	"sync"
	"time"

	id "bindery/pkg/domain"
	audit "bindery/pkg/platform/audit"
)

// Publisher fans events out to a single store. Zero-buffer publishers emit
// synchronously; buffered publishers drop events when the buffer is full
// rather than stall a mutating call on a slow sink.
type Publisher struct {
	store audit.Store

	inbox   chan audit.Event
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

type Option func(*options)

type options struct {
	buffer int
}

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given channel capacity.
func WithAsyncBuffer(n int) Option {
	return func(o *options) { o.buffer = n }
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Publisher{store: store}
	if o.buffer > 0 {
		p.inbox = make(chan audit.Event, o.buffer)
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

// Emit records an event. The event timestamp is stamped here when the
// caller left it zero.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	default:
		// Buffer full: events are observational, dropping is preferable to
		// blocking the state machine call that produced them.
		return nil
	}
}

// List returns stored events for an account (sync and drained async ones).
func (p *Publisher) List(ctx context.Context, accountID id.AccountID) ([]audit.Event, error) {
	return p.store.ListByAccount(ctx, accountID)
}

// Close drains any buffered events and stops the background goroutine.
// Safe to call more than once.
func (p *Publisher) Close() {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
		<-p.done
	}
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		// Delivery errors are swallowed: the transition already committed
		// and must not be unwound for a sink failure.
		_ = p.store.Append(context.Background(), event)
	}
}
