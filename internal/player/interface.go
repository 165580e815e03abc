package player

import "context"

// Launcher starts the external player for one song.
type Launcher interface {
	Launch(ctx context.Context, url string) (Handle, error)
}

// Handle is a running player process.
type Handle interface {
	// Running reports whether the process has not exited yet.
	Running() bool
	// Wait blocks until the process exits and returns its exit error.
	Wait() error
	// Stop asks the process to terminate. Only used on shutdown; a song
	// ends when the player exits on its own.
	Stop() error
}

// Verify Command implements Launcher at compile time.
var _ Launcher = (*Command)(nil)
