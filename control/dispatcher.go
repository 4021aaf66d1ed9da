package control

import "context"

// Consumer receives every Message whose Kind it is registered for.
type Consumer interface {
	HandleControl(msg Message)
}

// Dispatcher owns the control plane's single inbound channel and fans
// incoming messages out to the registered consumer for each Kind (the
// source scheduler, the transform stage, the output stage).
type Dispatcher struct {
	tx        chan Message
	consumers map[Kind]Consumer
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewDispatcher starts the dispatcher loop on ctx and returns it along
// with a client AnonymousHandle. bufferSize bounds how many pending
// messages may queue before TrySend reports ErrChannelFull.
func NewDispatcher(ctx context.Context, bufferSize int) (*Dispatcher, *AnonymousHandle) {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	dispatchCtx, cancel := context.WithCancel(ctx)
	d := &Dispatcher{
		tx:        make(chan Message, bufferSize),
		consumers: make(map[Kind]Consumer),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go d.run(dispatchCtx)
	handle := NewAnonymousHandle(d.tx, cancel, d.done)
	return d, handle
}

// Register assigns the consumer that handles every Message of the given
// Kind. Must be called before the dispatcher receives messages of that
// kind; typically done once during pipeline construction.
func (d *Dispatcher) Register(kind Kind, consumer Consumer) {
	d.consumers[kind] = consumer
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-d.tx:
			if consumer, ok := d.consumers[msg.Kind]; ok {
				consumer.HandleControl(msg)
			}
		}
	}
}

// Done returns a channel closed once the dispatcher has stopped.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }
