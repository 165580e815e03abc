// Package notify tells performers that their song is up.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

// Event announces that a song is about to be performed.
type Event struct {
	ID            uuid.UUID    `json:"id"`
	Queue         string       `json:"queue"`
	Position      int          `json:"position"`
	PerformerID   snowflake.ID `json:"performer_id"`
	Title         string       `json:"title"`
	URL           string       `json:"url"`
	Duration      int          `json:"duration_seconds"`
	Collaborators string       `json:"collaborators,omitempty"`
	LyricsURL     string       `json:"lyrics_url,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	At            time.Time    `json:"at"`
	TenantID      snowflake.ID `json:"tenant_id,omitempty"`
}

// NewEvent builds the turn announcement for song.
func NewEvent(song queue.Song) Event {
	return Event{
		ID:            uuid.New(),
		Queue:         song.Queue,
		Position:      song.Position,
		PerformerID:   song.SubmitterID,
		Title:         song.Title,
		URL:           song.URL,
		Duration:      int(song.Duration / time.Second),
		Collaborators: song.Collaborators,
		LyricsURL:     song.LyricsURL,
		Notes:         song.Notes,
		At:            time.Now(),
		TenantID:      song.TenantID,
	}
}

// Message renders the chat text sent to the performer.
func (e Event) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<@%s> it's your turn! Now playing %q", e.PerformerID, e.Title)
	if d := time.Duration(e.Duration) * time.Second; d > 0 {
		// RelTime of two instants gives "3 minutes" style durations.
		now := time.Unix(0, 0)
		fmt.Fprintf(&b, " (%s)", strings.TrimSpace(humanize.RelTime(now, now.Add(d), "", "")))
	}
	fmt.Fprintf(&b, ", the %s song of %s.", humanize.Ordinal(e.Position+1), e.Queue)
	if e.Collaborators != "" {
		fmt.Fprintf(&b, "\nWith: %s", e.Collaborators)
	}
	if e.LyricsURL != "" {
		fmt.Fprintf(&b, "\nLyrics: %s", e.LyricsURL)
	}
	if e.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s", e.Notes)
	}
	return b.String()
}

// Notifier delivers turn announcements. Implementations must not block
// longer than ctx allows; the caller logs failures and moves on.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Multi sends every event to all notifiers. Every sink is attempted; the
// returned error joins the individual failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
