//go:build linux

package trigger

import "golang.org/x/sys/unix"

// priorityFraction is the share of the kernel-reported SCHED_FIFO priority
// range this package asks for: high enough to preempt ordinary timeslice
// work, low enough to leave room above for anything more latency-critical
// sharing the machine.
const priorityFraction = 0.55

// ApplyRealtimePriority asks the scheduler to run the calling goroutine's
// underlying thread at elevated priority. Best-effort: failures are
// returned but callers typically just log and continue, since realtime
// scheduling usually requires elevated privileges. The priority level is
// derived from the kernel-reported SCHED_FIFO maximum rather than
// hardcoded, since that maximum is not guaranteed portable across kernels.
func ApplyRealtimePriority() error {
	max, err := unix.SchedGetPriorityMax(unix.SCHED_FIFO)
	if err != nil {
		return err
	}
	min, err := unix.SchedGetPriorityMin(unix.SCHED_FIFO)
	if err != nil {
		return err
	}
	priority := min + int(float64(max-min)*priorityFraction)
	return unix.SchedSetscheduler(0, unix.SCHED_FIFO, &unix.SchedParam{Priority: priority})
}
