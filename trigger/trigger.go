// Package trigger controls when a source is polled for measurements, and
// how often its output is flushed downstream.
package trigger

import (
	"errors"
	"time"
)

// Spec is a fully resolved trigger configuration, produced by Builder.
// It is immutable once built; reconfiguration replaces the Spec wholesale
// inside a source task's versioned.Versioned[Spec] cell.
type Spec struct {
	// Manual is true for triggers driven by explicit Poll() calls rather
	// than a wall-clock interval.
	Manual bool

	StartTime     time.Time
	PollInterval  time.Duration
	FlushInterval time.Duration

	// FlushRounds is how many polls happen before the accumulated
	// measurements are flushed downstream.
	FlushRounds int
	// UpdateRounds is how many polls happen between two checks of the
	// trigger's own reconfiguration cell.
	UpdateRounds int
	// Interruptible indicates that a poll may be cancelled mid-flight by
	// a reconfiguration or shutdown request.
	Interruptible bool
	// RealtimePriority requests the scheduler run this source's task at
	// elevated priority; Build sets it for poll intervals of 3ms or less.
	RealtimePriority bool
	// AllowManualTrigger records whether an interval-driven source accepts
	// on-demand polls. The pipeline does not read it: a TriggerNow control
	// message polls a matched source whether or not this is set.
	AllowManualTrigger bool
}

var (
	// ErrInvalidInterval is returned when poll/flush intervals are zero or
	// inconsistent (flush must happen no more often than polling).
	ErrInvalidInterval = errors.New("trigger: poll_interval and flush_interval must be non-zero and flush_interval must be >= poll_interval")
)

const realtimeThreshold = 3 * time.Millisecond

// Builder constructs a Spec using the same fluent, order-independent style
// as the rest of the pipeline's builders.
type Builder struct {
	manual             bool
	startTime          time.Time
	pollInterval       time.Duration
	flushInterval      time.Duration
	updateSet          bool
	updateInterval     time.Duration
	interruptible      bool
	allowManualTrigger bool
}

// NewInterval starts a time-driven trigger builder polling at the given
// interval. Its start time is set with StartingAt; the zero Time means
// "now" when built.
func NewInterval(pollInterval time.Duration) *Builder {
	return &Builder{
		pollInterval:  pollInterval,
		flushInterval: pollInterval,
	}
}

// NewManual starts a builder for a trigger driven by explicit calls rather
// than a timer. Manual triggers default to interruptible.
func NewManual() *Builder {
	return &Builder{manual: true, interruptible: true}
}

// StartingAt sets the Spec's StartTime. The source task does not read
// StartTime: its ticker starts when the task starts, so the first tick
// comes one poll interval after that, whatever StartTime says.
func (b *Builder) StartingAt(t time.Time) *Builder {
	b.startTime = t
	return b
}

// FlushInterval sets how often accumulated measurements are flushed
// downstream; flush_rounds is derived as max(1, flush/poll).
func (b *Builder) FlushInterval(d time.Duration) *Builder {
	b.flushInterval = d
	return b
}

// UpdateInterval sets how often the trigger checks for reconfiguration. If
// poll_interval is greater than update_interval, the trigger checks after
// every poll and becomes interruptible; otherwise update_rounds is derived
// as max(1, update/poll).
func (b *Builder) UpdateInterval(d time.Duration) *Builder {
	b.updateSet = true
	b.updateInterval = d
	return b
}

// Interruptible overrides whether a poll in progress can be cancelled.
func (b *Builder) Interruptible(v bool) *Builder {
	b.interruptible = v
	return b
}

// AllowManualTrigger sets Spec.AllowManualTrigger. The pipeline does not
// read that field: TriggerNow control messages poll a matched source
// whether or not it is set.
func (b *Builder) AllowManualTrigger(v bool) *Builder {
	b.allowManualTrigger = v
	return b
}

// Build validates the accumulated settings and produces a Spec.
func (b *Builder) Build() (Spec, error) {
	if b.manual {
		return Spec{
			Manual:             true,
			Interruptible:      b.interruptible,
			FlushRounds:        1,
			UpdateRounds:       1,
			AllowManualTrigger: true,
		}, nil
	}

	if b.pollInterval <= 0 || b.flushInterval <= 0 || b.flushInterval < b.pollInterval {
		return Spec{}, ErrInvalidInterval
	}

	flushRounds := int(b.flushInterval / b.pollInterval)
	if flushRounds < 1 {
		flushRounds = 1
	}

	updateRounds := 1
	interruptible := b.interruptible
	if b.updateSet {
		if b.pollInterval > b.updateInterval {
			updateRounds = 1
			interruptible = true
		} else {
			updateRounds = int(b.updateInterval / b.pollInterval)
			if updateRounds < 1 {
				updateRounds = 1
			}
		}
	}

	start := b.startTime
	if start.IsZero() {
		start = time.Now()
	}

	return Spec{
		StartTime:          start,
		PollInterval:       b.pollInterval,
		FlushInterval:      b.flushInterval,
		FlushRounds:        flushRounds,
		UpdateRounds:       updateRounds,
		Interruptible:      interruptible,
		RealtimePriority:   b.pollInterval <= realtimeThreshold,
		AllowManualTrigger: b.allowManualTrigger,
	}, nil
}
