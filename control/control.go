// Package control implements the pipeline's control plane: a typed
// command bus that lets plugins and the CLI reconfigure running sources,
// transforms and outputs without stopping the pipeline.
package control

import (
	"context"
	"errors"
	"time"

	"alumet/naming"
	"alumet/trigger"
)

// Kind tells which kind of pipeline element a control.Message targets,
// and so which of its SourceState/TransformState/OutputState fields the
// dispatcher reads.
type Kind int

const (
	KindSource Kind = iota
	KindTransform
	KindOutput
)

// TaskState is the desired run state of a source task.
type TaskState int

const (
	StateRun        TaskState = iota
	StateRunDiscard           // resume, discarding any unsent buffered points
	StatePause
	StateStopNow    // stop immediately, drop any unsent points
	StateStopFinish // flush the buffer, then stop
)

// OutputState is the desired run state of an output task.
type OutputState int

const (
	OutputRun OutputState = iota
	OutputPause
	OutputStop
	// OutputRunDiscard resumes a paused or running output but swaps its
	// broadcast subscription for a fresh one first, discarding anything
	// already buffered, so the output only sees new data. OutputStop
	// always takes precedence: a Stop requested after a RunDiscard is
	// never clobbered back into a running/discarding state.
	OutputRunDiscard
)

// Message is one command sent through the control plane.
type Message struct {
	Kind         Kind
	Selector     naming.Selector
	State        TaskState
	OutputState  OutputState
	StopAndDrain bool // carried with the message; no pipeline consumer reads it, so StateStopNow and OutputStop act the same with or without it
	// SetTransformEnabled, when Kind == KindTransform, flips specific
	// transforms on or off within the transform stage's bitset instead
	// of changing a task's run state.
	SetTransformEnabled *bool
	// TriggerNow, when Kind == KindSource, asks every matched source to
	// poll once immediately and deliver its buffer, independently of its
	// own trigger.Spec schedule. Used by the CLI's "exec" subcommand to
	// take a final measurement after a watched child process exits.
	TriggerNow bool
	// SetTrigger, when Kind == KindSource, replaces every matched
	// source's trigger.Spec wholesale, taking effect before the next
	// poll. Used by the config hot-reload watcher to push a changed
	// poll_interval/flush_interval into running sources without
	// restarting them.
	SetTrigger *trigger.Spec
}

var (
	// ErrChannelFull is returned by TrySend when the control channel's
	// buffer is exhausted.
	ErrChannelFull = errors.New("control: channel full")
	// ErrShutdown is returned by Send/TrySend once the control plane has
	// been shut down.
	ErrShutdown = errors.New("control: dispatcher shut down")
)

// AnonymousHandle is a control plane client with no notion of which
// plugin it belongs to; it can target any element.
type AnonymousHandle struct {
	tx       chan Message
	shutdown context.CancelFunc
	done     <-chan struct{}
}

// NewAnonymousHandle wraps a dispatcher's inbound channel and cancel
// function into a client handle.
func NewAnonymousHandle(tx chan Message, shutdown context.CancelFunc, done <-chan struct{}) *AnonymousHandle {
	return &AnonymousHandle{tx: tx, shutdown: shutdown, done: done}
}

// Send blocks until the message is enqueued or the control plane shuts
// down.
func (h *AnonymousHandle) Send(ctx context.Context, msg Message) error {
	select {
	case <-h.done:
		return ErrShutdown
	default:
	}
	select {
	case h.tx <- msg:
		return nil
	case <-h.done:
		return ErrShutdown
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues the message without blocking, returning ErrChannelFull
// if the dispatcher's buffer is exhausted.
func (h *AnonymousHandle) TrySend(msg Message) error {
	select {
	case <-h.done:
		return ErrShutdown
	default:
	}
	select {
	case h.tx <- msg:
		return nil
	case <-h.done:
		return ErrShutdown
	default:
		return ErrChannelFull
	}
}

// SendWait is Send with a timeout instead of an external context.
func (h *AnonymousHandle) SendWait(msg Message, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return h.Send(ctx, msg)
}

// Shutdown cancels the control plane's dispatcher, causing every pending
// and future Send/TrySend to fail with ErrShutdown.
func (h *AnonymousHandle) Shutdown() {
	h.shutdown()
}

// Scoped returns a ScopedHandle bound to the given plugin, for use by a
// specific plugin instance.
func (h *AnonymousHandle) Scoped(plugin naming.PluginName) *ScopedHandle {
	return &ScopedHandle{inner: h, plugin: plugin}
}

// ScopedHandle is a control plane client bound to one plugin. It forwards
// each message unchanged: the Selector is neither rewritten nor checked
// against the bound plugin, so a message can target any element.
type ScopedHandle struct {
	inner  *AnonymousHandle
	plugin naming.PluginName
}

// Send forwards to the underlying AnonymousHandle.
func (h *ScopedHandle) Send(ctx context.Context, msg Message) error {
	return h.inner.Send(ctx, msg)
}

// TrySend forwards to the underlying AnonymousHandle.
func (h *ScopedHandle) TrySend(msg Message) error {
	return h.inner.TrySend(msg)
}

// Plugin returns the plugin name this handle is scoped to.
func (h *ScopedHandle) Plugin() naming.PluginName {
	return h.plugin
}

// AllOwnedByPlugin returns a Selector matching every element owned by this
// handle's plugin.
func (h *ScopedHandle) AllOwnedByPlugin() naming.Selector {
	return naming.ByPlugin(h.plugin)
}
