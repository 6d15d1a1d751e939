package receiver

import (
	"context"
	"sync"
)

// DefaultBufferSize is the LocalTransport buffer when none is given.
const DefaultBufferSize = 256

// LocalTransport is an in-process transport. Envelopes sent before Start
// are buffered; envelopes still buffered at Stop are delivered before Stop
// returns.
type LocalTransport struct {
	name    string
	events  chan *Envelope
	onError func(env *Envelope, err error)

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	done    chan struct{}
}

// LocalOption configures a LocalTransport.
type LocalOption func(*LocalTransport)

// WithBufferSize sets the channel buffer size.
func WithBufferSize(n int) LocalOption {
	return func(t *LocalTransport) {
		if n > 0 {
			t.events = make(chan *Envelope, n)
		}
	}
}

// WithErrorHandler is called when delivery of an envelope fails.
func WithErrorHandler(fn func(env *Envelope, err error)) LocalOption {
	return func(t *LocalTransport) {
		t.onError = fn
	}
}

// NewLocalTransport creates a named in-process transport.
func NewLocalTransport(name string, opts ...LocalOption) *LocalTransport {
	t := &LocalTransport{
		name:   name,
		events: make(chan *Envelope, DefaultBufferSize),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var (
	_ Receiver = (*LocalTransport)(nil)
	_ Sender   = (*LocalTransport)(nil)
)

// Name implements Receiver.
func (t *LocalTransport) Name() string {
	return t.name
}

// Send implements Sender. It blocks while the buffer is full.
func (t *LocalTransport) Send(ctx context.Context, env *Envelope) error {
	select {
	case <-t.stopCh:
		return ErrTransportClosed
	default:
	}

	select {
	case t.events <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.stopCh:
		return ErrTransportClosed
	}
}

// Start implements Receiver.
func (t *LocalTransport) Start(ctx context.Context, deliver Deliver) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return ErrTransportClosed
	}
	if t.started {
		return ErrAlreadyStarted
	}
	t.started = true

	go t.run(ctx, deliver)
	return nil
}

func (t *LocalTransport) run(ctx context.Context, deliver Deliver) {
	defer close(t.done)
	for {
		select {
		case env := <-t.events:
			t.deliver(ctx, deliver, env)
		case <-ctx.Done():
			return
		case <-t.stopCh:
			for {
				select {
				case env := <-t.events:
					t.deliver(ctx, deliver, env)
				default:
					return
				}
			}
		}
	}
}

func (t *LocalTransport) deliver(ctx context.Context, deliver Deliver, env *Envelope) {
	if err := deliver(ctx, env); err != nil && t.onError != nil {
		t.onError(env, err)
	}
}

// Stop implements Receiver.
func (t *LocalTransport) Stop(ctx context.Context) error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.stopped = true
	close(t.stopCh)
	started := t.started
	t.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
