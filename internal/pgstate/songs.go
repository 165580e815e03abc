package pgstate

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jackc/pgx/v5"

	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

const songColumns = `url, submitter_id, queue_name, title, duration, lyrics_url, notes,
        collaborators, position, submitted_at, completed_at, is_revoked, tenant_id`

func scanSong(row pgx.Row) (queue.Song, error) {
	var (
		s                 queue.Song
		submitter, tenant int64
		duration          int64
	)
	err := row.Scan(&s.URL, &submitter, &s.Queue, &s.Title, &duration, &s.LyricsURL, &s.Notes,
		&s.Collaborators, &s.Position, &s.SubmittedAt, &s.CompletedAt, &s.Revoked, &tenant)
	if errors.Is(err, pgx.ErrNoRows) {
		return queue.Song{}, queue.ErrNotFound
	}
	if err != nil {
		return queue.Song{}, err
	}
	s.SubmitterID = snowflake.ID(submitter)
	s.TenantID = snowflake.ID(tenant)
	s.Duration = time.Duration(duration) * time.Second
	return s, nil
}

// songForUpdate loads the song at position and locks its row until the
// transaction ends.
func songForUpdate(ctx context.Context, tx pgx.Tx, queueName string, position int) (queue.Song, error) {
	return scanSong(tx.QueryRow(ctx, `
        SELECT `+songColumns+` FROM songs
        WHERE queue_name = $1 AND position = $2
        FOR UPDATE
    `, queueName, position))
}

func (s *Store) AppendSong(ctx context.Context, queueName string, submitter snowflake.ID, in queue.SongInput) (queue.Song, error) {
	var song queue.Song
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		// The UPDATE locks the queue row, so concurrent appends serialize here.
		var (
			position int
			tenant   int64
		)
		err := tx.QueryRow(ctx, `
            UPDATE queues SET max_position = max_position + 1
            WHERE name = $1
            RETURNING max_position - 1, tenant_id
        `, queueName).Scan(&position, &tenant)
		if errors.Is(err, pgx.ErrNoRows) {
			return queue.ErrNotFound
		}
		if err != nil {
			return err
		}

		song = queue.NewSong(queueName, position, submitter, snowflake.ID(tenant), in, s.now().UTC())
		_, err = tx.Exec(ctx, `
            INSERT INTO songs (url, submitter_id, queue_name, title, duration, lyrics_url,
                notes, collaborators, position, submitted_at, tenant_id)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        `, song.URL, int64(submitter), queueName, song.Title, int64(song.Duration/time.Second),
			song.LyricsURL, song.Notes, song.Collaborators, position, song.SubmittedAt, tenant)
		if isUniqueViolation(err) {
			return queue.ErrDuplicateSubmission
		}
		return err
	})
	if err != nil {
		return queue.Song{}, err
	}
	return song, nil
}

func (s *Store) SwapSong(ctx context.Context, queueName string, position int, requester snowflake.ID, in queue.SongInput) (queue.Song, error) {
	var song queue.Song
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		current, err := songForUpdate(ctx, tx, queueName, position)
		if err != nil {
			return err
		}
		if current.SubmitterID != requester {
			return queue.ErrPermissionDenied
		}
		if current.Completed() {
			return queue.ErrAlreadyPerformed
		}

		song = current.Swapped(in, s.now().UTC())
		_, err = tx.Exec(ctx, `
            UPDATE songs SET url = $3, title = $4, duration = $5, lyrics_url = $6, notes = $7,
                collaborators = $8, submitted_at = $9, is_revoked = FALSE
            WHERE queue_name = $1 AND position = $2
        `, queueName, position, song.URL, song.Title, int64(song.Duration/time.Second),
			song.LyricsURL, song.Notes, song.Collaborators, song.SubmittedAt)
		if isUniqueViolation(err) {
			return queue.ErrDuplicateSubmission
		}
		return err
	})
	if err != nil {
		return queue.Song{}, err
	}
	return song, nil
}

func (s *Store) RevokeSong(ctx context.Context, queueName string, position int, requester snowflake.ID, isOperator bool) (queue.Song, error) {
	var song queue.Song
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		song, err = songForUpdate(ctx, tx, queueName, position)
		if err != nil {
			return err
		}
		if !isOperator && song.SubmitterID != requester {
			return queue.ErrPermissionDenied
		}
		if _, err := tx.Exec(ctx, `
            UPDATE songs SET is_revoked = TRUE
            WHERE queue_name = $1 AND position = $2
        `, queueName, position); err != nil {
			return err
		}
		song.Revoked = true
		return nil
	})
	if err != nil {
		return queue.Song{}, err
	}
	return song, nil
}

func (s *Store) CompleteSong(ctx context.Context, queueName string, position int, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE songs SET completed_at = $3
        WHERE queue_name = $1 AND position = $2
    `, queueName, position, at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return queue.ErrNotFound
	}
	return nil
}

func (s *Store) CountActiveFor(ctx context.Context, submitter snowflake.ID) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
        SELECT COUNT(*) FROM songs
        WHERE submitter_id = $1 AND NOT is_revoked AND completed_at IS NULL
    `, int64(submitter)).Scan(&n)
	return n, err
}

func (s *Store) SongAt(ctx context.Context, queueName string, position int) (queue.Song, error) {
	return scanSong(s.db.QueryRow(ctx, `
        SELECT `+songColumns+` FROM songs
        WHERE queue_name = $1 AND position = $2
    `, queueName, position))
}

func (s *Store) ListSongs(ctx context.Context, queueName string, from int, includeCompleted bool) ([]queue.Song, error) {
	if _, err := s.GetQueue(ctx, queueName); err != nil {
		return nil, err
	}

	var (
		rows pgx.Rows
		err  error
	)
	if includeCompleted {
		rows, err = s.db.Query(ctx, `
            SELECT `+songColumns+` FROM songs
            WHERE queue_name = $1
            ORDER BY position
        `, queueName)
	} else {
		rows, err = s.db.Query(ctx, `
            SELECT `+songColumns+` FROM songs
            WHERE queue_name = $1 AND position >= $2 AND NOT is_revoked AND completed_at IS NULL
            ORDER BY position
        `, queueName, from)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var songs []queue.Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}
