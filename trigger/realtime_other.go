//go:build !linux

package trigger

// ApplyRealtimePriority is a no-op outside Linux: realtime scheduling
// classes are not portably available.
func ApplyRealtimePriority() error {
	return nil
}
