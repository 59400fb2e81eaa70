package common

import "errors"

var (
	// ErrMustBeforeShutdown rejects economic activity once the global
	// shutdown has triggered.
	ErrMustBeforeShutdown = errors.New("must be before system shutdown")
	// ErrMustAfterShutdown rejects unwind-only operations while the system
	// is still live.
	ErrMustAfterShutdown = errors.New("must be after system shutdown")
)

// ShutdownView exposes the global emergency-shutdown flag to modules that must
// gate their entry points on it.
type ShutdownView interface {
	IsShutdown() bool
}

// GuardBeforeShutdown fails when the system has already shut down. A nil view
// is treated as a live system.
func GuardBeforeShutdown(v ShutdownView) error {
	if v != nil && v.IsShutdown() {
		return ErrMustBeforeShutdown
	}
	return nil
}

// GuardAfterShutdown fails while the system is still live.
func GuardAfterShutdown(v ShutdownView) error {
	if v == nil || !v.IsShutdown() {
		return ErrMustAfterShutdown
	}
	return nil
}
