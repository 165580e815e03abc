//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"fmt"
	"testing"

	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpSongSubmit,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpQueueLoad,
			err:      errors.New("database is locked"),
			expected: "Failed to load queue: database is locked",
		},
		{
			name:     "duplicate submission",
			op:       OpSongSubmit,
			err:      fmt.Errorf("append: %w", queue.ErrDuplicateSubmission),
			expected: "Failed to queue song: you already submitted that song",
		},
		{
			name:     "override out of range",
			op:       OpPlaybackOverride,
			err:      queue.ErrOutOfRange,
			expected: "Failed to set playback position: that position does not exist",
		},
		{
			name:     "revoke by stranger",
			op:       OpSongRevoke,
			err:      queue.ErrPermissionDenied,
			expected: "Failed to revoke song: only the submitter or an operator can do that",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.op, tt.err)
			if result != tt.expected {
				t.Errorf("Format(%q, %v) = %q, want %q", tt.op, tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpQueueCreate,
			context:  "night1",
			err:      nil,
			expected: "",
		},
		{
			name:     "with context",
			op:       OpQueueActivate,
			context:  "night1",
			err:      queue.ErrNotFound,
			expected: "Failed to switch active queue 'night1': not found",
		},
		{
			name:     "empty context falls back to Format",
			op:       OpSongSwap,
			context:  "",
			err:      queue.ErrAlreadyPerformed,
			expected: "Failed to swap song: that song has already been performed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWith(tt.op, tt.context, tt.err)
			if result != tt.expected {
				t.Errorf("FormatWith(%q, %q, %v) = %q, want %q", tt.op, tt.context, tt.err, result, tt.expected)
			}
		})
	}
}

func TestExplain(t *testing.T) {
	if got := Explain(nil); got != "" {
		t.Errorf("Explain(nil) = %q", got)
	}
	if got := Explain(errors.Join(queue.ErrMetadataUnavailable, errors.New("yt-dlp: exit 1"))); got != "could not look up that song" {
		t.Errorf("joined metadata error = %q", got)
	}
	if got := Explain(queue.ErrQuotaExceeded); got != "you have too many songs waiting in the queue" {
		t.Errorf("quota = %q", got)
	}
	if got := Explain(errors.New("boom")); got != "boom" {
		t.Errorf("other = %q", got)
	}
}
