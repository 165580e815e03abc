package httpapi

import (
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/UTD-JLA/karaoke-bot/internal/playback"
	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

type queueJSON struct {
	Name            string    `json:"name"`
	CurrentPosition int       `json:"current_position"`
	MaxPosition     int       `json:"max_position"`
	CreatedAt       time.Time `json:"created_at"`
}

type songJSON struct {
	Position      int          `json:"position"`
	URL           string       `json:"url"`
	Title         string       `json:"title"`
	Duration      int          `json:"duration_seconds"`
	SubmitterID   snowflake.ID `json:"submitter_id"`
	LyricsURL     string       `json:"lyrics_url,omitempty"`
	Collaborators string       `json:"collaborators,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	SubmittedAt   time.Time    `json:"submitted_at"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	Revoked       bool         `json:"revoked"`
}

type songRequestJSON struct {
	URL           string `json:"url"`
	LyricsURL     string `json:"lyrics_url"`
	Collaborators string `json:"collaborators"`
	Notes         string `json:"notes"`
}

type nowPlayingJSON struct {
	State   string    `json:"state"`
	Queue   string    `json:"queue,omitempty"`
	Running bool      `json:"running"`
	Song    *songJSON `json:"song,omitempty"`
}

func toQueueJSON(q queue.Queue) queueJSON {
	return queueJSON{
		Name:            q.Name,
		CurrentPosition: q.CurrentPosition,
		MaxPosition:     q.MaxPosition,
		CreatedAt:       q.CreatedAt,
	}
}

func toSongJSON(s queue.Song) songJSON {
	return songJSON{
		Position:      s.Position,
		URL:           s.URL,
		Title:         s.Title,
		Duration:      int(s.Duration / time.Second),
		SubmitterID:   s.SubmitterID,
		LyricsURL:     s.LyricsURL,
		Collaborators: s.Collaborators,
		Notes:         s.Notes,
		SubmittedAt:   s.SubmittedAt,
		CompletedAt:   s.CompletedAt,
		Revoked:       s.Revoked,
	}
}

func toSongsJSON(songs []queue.Song) []songJSON {
	out := make([]songJSON, 0, len(songs))
	for _, s := range songs {
		out = append(out, toSongJSON(s))
	}
	return out
}

func toNowPlayingJSON(snap playback.Snapshot) nowPlayingJSON {
	np := nowPlayingJSON{
		State:   snap.State.String(),
		Queue:   snap.Active,
		Running: snap.Running,
	}
	if snap.Current != nil {
		song := toSongJSON(*snap.Current)
		np.Song = &song
	}
	return np
}
