//go:build !linux

package notify

// NewDesktop returns a no-op notifier on non-Linux platforms.
// Desktop notifications are only supported on Linux via D-Bus.
func NewDesktop() Notifier {
	return stubNotifier{}
}
