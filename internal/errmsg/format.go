// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import (
	"errors"
	"fmt"

	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Queue operations
	OpQueueCreate   Op = "create queue"
	OpQueueLoad     Op = "load queue"
	OpQueueList     Op = "list queues"
	OpQueueActivate Op = "switch active queue"

	// Song operations
	OpSongSubmit Op = "queue song"
	OpSongSwap   Op = "swap song"
	OpSongRevoke Op = "revoke song"
	OpSongList   Op = "list songs"

	// Playback operations
	OpPlaybackOverride Op = "set playback position"
	OpPlaybackPause    Op = "pause playback"
	OpPlaybackResume   Op = "resume playback"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %s", op, Explain(err))
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %s", op, context, Explain(err))
}

// Explain turns domain errors into the sentence shown to a requester.
// Other errors are returned verbatim.
func Explain(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, queue.ErrDuplicateSubmission):
		return "you already submitted that song"
	case errors.Is(err, queue.ErrQuotaExceeded):
		return "you have too many songs waiting in the queue"
	case errors.Is(err, queue.ErrPermissionDenied):
		return "only the submitter or an operator can do that"
	case errors.Is(err, queue.ErrOutOfRange):
		return "that position does not exist"
	case errors.Is(err, queue.ErrAlreadyPerformed):
		return "that song has already been performed"
	case errors.Is(err, queue.ErrNoActiveQueue):
		return "no queue is active"
	case errors.Is(err, queue.ErrMetadataUnavailable):
		return "could not look up that song"
	case errors.Is(err, queue.ErrInvalidURL):
		return "that is not a valid link"
	case errors.Is(err, queue.ErrNotFound):
		return "not found"
	default:
		return err.Error()
	}
}
