package playback

// State is the coordinator's position in the tick cycle.
//
//	Idle ──song ready──▶ WaitingToPlay ──notified──▶ Playing
//	 ▲                                                 │
//	 └──────────────── Advancing ◀────player exited────┘
//
// A tick that finds no active queue, an exhausted queue, or only revoked
// songs stays Idle. An interrupted tick returns to Idle without Advancing.
type State int

const (
	StateIdle State = iota
	StateWaitingToPlay
	StatePlaying
	StateAdvancing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateWaitingToPlay:
		return "WaitingToPlay"
	case StatePlaying:
		return "Playing"
	case StateAdvancing:
		return "Advancing"
	default:
		return "Unknown"
	}
}

// IsActive returns true while a song is being announced or performed.
func (s State) IsActive() bool {
	return s == StateWaitingToPlay || s == StatePlaying
}
