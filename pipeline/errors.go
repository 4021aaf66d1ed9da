package pipeline

import "fmt"

// PollError is returned by a Source's Poll method.
type PollError struct {
	err     error
	fatal   bool
}

func (e *PollError) Error() string { return e.err.Error() }
func (e *PollError) Unwrap() error { return e.err }

// CanRetryPollError wraps err as a non-fatal poll error: the source task
// logs it and polls again on the next trigger.
func CanRetryPollError(err error) *PollError { return &PollError{err: err} }

// FatalPollError wraps err as a fatal poll error: the source task stops.
func FatalPollError(err error) *PollError { return &PollError{err: err, fatal: true} }

// IsFatal reports whether this error should stop the source task.
func (e *PollError) IsFatal() bool { return e.fatal }

// WriteError is returned by an Output's Write method.
type WriteError struct {
	err   error
	fatal bool
}

func (e *WriteError) Error() string { return e.err.Error() }
func (e *WriteError) Unwrap() error { return e.err }

// CanRetryWriteError wraps err as a non-fatal write error: logged, the
// output task keeps running.
func CanRetryWriteError(err error) *WriteError { return &WriteError{err: err} }

// FatalWriteError wraps err as a fatal write error: the output task stops.
func FatalWriteError(err error) *WriteError { return &WriteError{err: err, fatal: true} }

func (e *WriteError) IsFatal() bool { return e.fatal }

// TransformError is returned by a Transform's Apply method.
type TransformError struct {
	err   error
	fatal bool
}

func (e *TransformError) Error() string { return e.err.Error() }
func (e *TransformError) Unwrap() error { return e.err }

func CanRetryTransformError(err error) *TransformError { return &TransformError{err: err} }
func FatalTransformError(err error) *TransformError    { return &TransformError{err: err, fatal: true} }
func (e *TransformError) IsFatal() bool                { return e.fatal }

func wrapf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
