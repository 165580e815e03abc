// Package queue defines the karaoke queue model: named queues with a
// playback pointer and a high-water mark, and the songs queued on them.
package queue

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Queue is a named, ordered sequence of song requests.
//
// CurrentPosition is the slot of the next song to perform and MaxPosition is
// one past the last assigned slot, so CurrentPosition <= MaxPosition always.
type Queue struct {
	Name            string
	CurrentPosition int
	MaxPosition     int
	TenantID        snowflake.ID
	CreatedAt       time.Time
}

// Exhausted returns true when no song is left to perform.
func (q Queue) Exhausted() bool {
	return q.CurrentPosition >= q.MaxPosition
}

// Remaining returns the number of slots between the pointer and the end.
func (q Queue) Remaining() int {
	return max(q.MaxPosition-q.CurrentPosition, 0)
}

// Song is a performance request occupying one position of a queue.
type Song struct {
	URL           string
	SubmitterID   snowflake.ID
	Queue         string
	Title         string
	Duration      time.Duration
	LyricsURL     string
	Notes         string
	Collaborators string
	Position      int
	SubmittedAt   time.Time
	CompletedAt   *time.Time
	Revoked       bool
	TenantID      snowflake.ID
}

// Completed returns true once the song has been performed.
func (s Song) Completed() bool {
	return s.CompletedAt != nil
}

// Active returns true if the song still waits for its turn.
func (s Song) Active() bool {
	return !s.Revoked && !s.Completed()
}

// SongInput is the mutable content of a song: what an append inserts and
// what a swap replaces.
type SongInput struct {
	URL           string
	Title         string
	Duration      time.Duration
	LyricsURL     string
	Collaborators string
	Notes         string
}

// apply copies the input onto s, leaving identity and lifecycle fields alone.
func (in SongInput) apply(s *Song) {
	s.URL = in.URL
	s.Title = in.Title
	s.Duration = in.Duration.Truncate(time.Second)
	s.LyricsURL = in.LyricsURL
	s.Collaborators = in.Collaborators
	s.Notes = in.Notes
}

// NewSong builds the song an append of in by submitter would store at
// position. Store implementations share it so every backend fills the same
// fields.
func NewSong(queueName string, position int, submitter, tenant snowflake.ID, in SongInput, now time.Time) Song {
	s := Song{
		SubmitterID: submitter,
		Queue:       queueName,
		Position:    position,
		SubmittedAt: now,
		TenantID:    tenant,
	}
	in.apply(&s)
	return s
}

// Swapped returns s with its content replaced by in. The position and the
// owner are kept, the revoked flag is cleared.
func (s Song) Swapped(in SongInput, now time.Time) Song {
	in.apply(&s)
	s.Revoked = false
	s.SubmittedAt = now
	return s
}
