package playback

import "github.com/UTD-JLA/karaoke-bot/internal/queue"

// StateChange is emitted when the coordinator state changes.
type StateChange struct {
	Previous State
	Current  State
}

// SongStarted is emitted once the player for a song was launched.
type SongStarted struct {
	Song queue.Song
}

// SongFinished is emitted once a song was marked completed and the pointer
// advanced. Launched is false when the player could not be started.
type SongFinished struct {
	Song     queue.Song
	Launched bool
}

// PositionChange is emitted when an operator overrides the pointer.
type PositionChange struct {
	Queue    string
	Position int
}

// ErrorEvent is emitted when a tick operation fails.
type ErrorEvent struct {
	Operation string // e.g., "launch", "notify", "advance"
	URL       string // song URL if applicable
	Err       error
}
