// Package versioned implements a small shared-state cell with
// change notification, used to push live reconfiguration into running
// pipeline tasks without restarting them.
package versioned

import "sync"

// Versioned is a mutex-guarded value plus a monotonically increasing
// version counter. Readers can either take a snapshot (Read) or wait for
// the next change (Changed) before re-reading.
type Versioned[T any] struct {
	mu      sync.Mutex
	value   T
	version uint32
	wake    chan struct{}
}

// New returns a Versioned cell holding the given initial value, at
// version 0.
func New[T any](initial T) *Versioned[T] {
	return &Versioned[T]{value: initial, wake: make(chan struct{})}
}

// Read returns a snapshot of the current value and its version.
func (v *Versioned[T]) Read() (T, uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.version
}

// Set replaces the value unconditionally and bumps the version.
func (v *Versioned[T]) Set(value T) {
	v.mu.Lock()
	v.value = value
	v.version++
	wake := v.wake
	v.wake = make(chan struct{})
	v.mu.Unlock()
	close(wake)
}

// Update applies f to the current value in place and bumps the version.
func (v *Versioned[T]) Update(f func(current T) T) {
	v.mu.Lock()
	v.value = f(v.value)
	v.version++
	wake := v.wake
	v.wake = make(chan struct{})
	v.mu.Unlock()
	close(wake)
}

// Changed returns a channel that is closed the next time the value
// changes. It is meant to be used in a select alongside other channels,
// the same way a context's Done channel is used.
func (v *Versioned[T]) Changed() <-chan struct{} {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.wake
}

// HasChanged reports whether the version has advanced past localVersion.
func (v *Versioned[T]) HasChanged(localVersion uint32) bool {
	_, version := v.Read()
	return version != localVersion
}

// UpdateIfChanged applies f and bumps the version only if the cell's
// current version still matches expectedVersion, giving callers an
// optimistic-concurrency way to avoid clobbering a concurrent writer's
// update. It returns the resulting version and whether f was applied.
func (v *Versioned[T]) UpdateIfChanged(expectedVersion uint32, f func(current T) T) (uint32, bool) {
	v.mu.Lock()
	if v.version != expectedVersion {
		version := v.version
		v.mu.Unlock()
		return version, false
	}
	v.value = f(v.value)
	v.version++
	version := v.version
	wake := v.wake
	v.wake = make(chan struct{})
	v.mu.Unlock()
	close(wake)
	return version, true
}

// Handle tracks a reader's last-observed version of a Versioned cell, so
// it can ask "has this changed since I last looked".
type Handle[T any] struct {
	cell         *Versioned[T]
	localVersion uint32
	everRead     bool
}

// NewHandle returns a Handle that has not yet read the cell; its first
// ReadIfChanged call always returns the current value.
func NewHandle[T any](cell *Versioned[T]) *Handle[T] {
	return &Handle[T]{cell: cell}
}

// ReadIfChanged returns the current value and true if the cell has
// changed (or has never been read) since the last call, or the zero value
// and false otherwise.
func (h *Handle[T]) ReadIfChanged() (T, bool) {
	value, version := h.cell.Read()
	if h.everRead && version == h.localVersion {
		var zero T
		return zero, false
	}
	h.localVersion = version
	h.everRead = true
	return value, true
}

// Read unconditionally returns the current value, refreshing the
// handle's local version so a subsequent ReadIfChanged/HasChanged call
// only reports a change that happens after this call.
func (h *Handle[T]) Read() T {
	value, version := h.cell.Read()
	h.localVersion = version
	h.everRead = true
	return value
}

// Seek returns the current value without refreshing the handle's local
// version, so a later ReadIfChanged/HasChanged still reports the change
// this Seek observed.
func (h *Handle[T]) Seek() T {
	value, _ := h.cell.Read()
	return value
}

// HasChanged reports whether the cell has changed since this handle's
// last Read/ReadIfChanged, without consuming the change.
func (h *Handle[T]) HasChanged() bool {
	if !h.everRead {
		return true
	}
	return h.cell.HasChanged(h.localVersion)
}

// MapIfChanged applies f to the current value and returns its result if
// the cell has changed since the last read; otherwise it returns the
// zero value of R and false, without calling f.
func MapIfChanged[T, R any](h *Handle[T], f func(T) R) (R, bool) {
	value, changed := h.ReadIfChanged()
	if !changed {
		var zero R
		return zero, false
	}
	return f(value), true
}

// Changed exposes the underlying cell's Changed channel for use in select
// statements.
func (h *Handle[T]) Changed() <-chan struct{} {
	return h.cell.Changed()
}
