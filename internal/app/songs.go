package app

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

// SongRequest is what a submitter provides. Title and duration are looked
// up from the URL.
type SongRequest struct {
	URL           string
	LyricsURL     string
	Collaborators string
	Notes         string
}

// AddSong appends a song to the active queue. Non-operators are limited to
// MaxQueuedPerUser active songs. Nothing is stored when the metadata lookup
// fails.
func (s *Service) AddSong(ctx context.Context, actor Actor, req SongRequest) (queue.Song, error) {
	name, err := s.active()
	if err != nil {
		return queue.Song{}, err
	}
	if err := validateURL(req.URL); err != nil {
		return queue.Song{}, err
	}

	if !actor.Operator && s.quota > 0 {
		n, err := s.store.CountActiveFor(ctx, actor.ID)
		if err != nil {
			return queue.Song{}, err
		}
		if n >= s.quota {
			return queue.Song{}, fmt.Errorf("%w: %d of %d", queue.ErrQuotaExceeded, n, s.quota)
		}
	}

	in, err := s.input(ctx, req)
	if err != nil {
		return queue.Song{}, err
	}

	song, err := s.store.AppendSong(ctx, name, actor.ID, in)
	if err != nil {
		return queue.Song{}, err
	}
	s.logger.Info().
		Str("queue", name).
		Int("position", song.Position).
		Str("url", song.URL).
		Uint64("submitter", uint64(actor.ID)).
		Msg("song queued")
	return song, nil
}

// SwapSong replaces the actor's song at position with a new request.
func (s *Service) SwapSong(ctx context.Context, actor Actor, position int, req SongRequest) (queue.Song, error) {
	name, err := s.active()
	if err != nil {
		return queue.Song{}, err
	}
	if err := validateURL(req.URL); err != nil {
		return queue.Song{}, err
	}

	in, err := s.input(ctx, req)
	if err != nil {
		return queue.Song{}, err
	}

	song, err := s.store.SwapSong(ctx, name, position, actor.ID, in)
	if err != nil {
		return queue.Song{}, err
	}
	s.logger.Info().Str("queue", name).Int("position", position).Str("url", song.URL).Msg("song swapped")
	return song, nil
}

// RevokeSong skips the song at position. Submitters may revoke their own
// songs, operators any song.
func (s *Service) RevokeSong(ctx context.Context, actor Actor, position int) (queue.Song, error) {
	name, err := s.active()
	if err != nil {
		return queue.Song{}, err
	}
	song, err := s.store.RevokeSong(ctx, name, position, actor.ID, actor.Operator)
	if err != nil {
		return queue.Song{}, err
	}
	s.logger.Info().Str("queue", name).Int("position", position).Uint64("actor", uint64(actor.ID)).Msg("song revoked")
	return song, nil
}

// ListSongs lists the active queue: upcoming songs, or every song when
// includeCompleted is set.
func (s *Service) ListSongs(ctx context.Context, includeCompleted bool) ([]queue.Song, error) {
	q, err := s.ActiveQueue(ctx)
	if err != nil {
		return nil, err
	}
	from := q.CurrentPosition
	if includeCompleted {
		from = 0
	}
	return s.store.ListSongs(ctx, q.Name, from, includeCompleted)
}

// MySongs lists the actor's upcoming songs in the active queue.
func (s *Service) MySongs(ctx context.Context, actor Actor) ([]queue.Song, error) {
	songs, err := s.ListSongs(ctx, false)
	if err != nil {
		return nil, err
	}
	var mine []queue.Song
	for _, song := range songs {
		if song.SubmitterID == actor.ID {
			mine = append(mine, song)
		}
	}
	return mine, nil
}

func (s *Service) input(ctx context.Context, req SongRequest) (queue.SongInput, error) {
	info, err := s.resolver.Resolve(ctx, req.URL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", req.URL).Msg("metadata lookup failed")
		return queue.SongInput{}, err
	}
	return queue.SongInput{
		URL:           req.URL,
		Title:         info.Title,
		Duration:      info.Duration,
		LyricsURL:     strings.TrimSpace(req.LyricsURL),
		Collaborators: strings.TrimSpace(req.Collaborators),
		Notes:         strings.TrimSpace(req.Notes),
	}, nil
}

// validateURL accepts http(s) and file URLs and existing local paths.
func validateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty", queue.ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", queue.ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("%w: missing host", queue.ErrInvalidURL)
		}
		return nil
	case "file":
		return nil
	case "":
		if _, err := os.Stat(raw); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", queue.ErrInvalidURL, raw)
}
