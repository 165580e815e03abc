package state

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"

	dbutil "github.com/UTD-JLA/karaoke-bot/internal/db"
	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

const songColumns = `url, submitter_id, queue_name, title, duration, lyrics_url, notes,
	collaborators, position, submitted_at, completed_at, is_revoked, tenant_id`

func scanSong(row rowScanner) (queue.Song, error) {
	var (
		s                          queue.Song
		submitter, tenant          int64
		duration, submittedAt      int64
		lyrics, notes, collaborate sql.NullString
		completedAt                sql.NullInt64
	)
	err := row.Scan(&s.URL, &submitter, &s.Queue, &s.Title, &duration, &lyrics, &notes,
		&collaborate, &s.Position, &submittedAt, &completedAt, &s.Revoked, &tenant)
	if errors.Is(err, sql.ErrNoRows) {
		return queue.Song{}, queue.ErrNotFound
	}
	if err != nil {
		return queue.Song{}, err
	}

	s.SubmitterID = snowflake.ID(submitter)
	s.TenantID = snowflake.ID(tenant)
	s.Duration = time.Duration(duration) * time.Second
	s.LyricsURL = dbutil.NullStringValue(lyrics)
	s.Notes = dbutil.NullStringValue(notes)
	s.Collaborators = dbutil.NullStringValue(collaborate)
	s.SubmittedAt = time.Unix(submittedAt, 0)
	s.CompletedAt = dbutil.UnixPtr(completedAt)
	return s, nil
}

func getSong(ctx context.Context, q querier, queueName string, position int) (queue.Song, error) {
	return scanSong(q.QueryRowContext(ctx,
		`SELECT `+songColumns+` FROM songs WHERE queue_name = ? AND position = ?`,
		queueName, position))
}

func (s *Store) AppendSong(ctx context.Context, queueName string, submitter snowflake.ID, in queue.SongInput) (queue.Song, error) {
	var song queue.Song
	err := dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// Claim the slot first; a failed insert rolls the bump back.
		var position int
		var tenant int64
		err := tx.QueryRowContext(ctx, `
			UPDATE queues SET max_position = max_position + 1
			WHERE name = ?
			RETURNING max_position - 1, tenant_id
		`, queueName).Scan(&position, &tenant)
		if errors.Is(err, sql.ErrNoRows) {
			return queue.ErrNotFound
		}
		if err != nil {
			return err
		}

		song = queue.NewSong(queueName, position, submitter, snowflake.ID(tenant), in, s.now())
		_, err = tx.ExecContext(ctx, `
			INSERT INTO songs (url, submitter_id, queue_name, title, duration, lyrics_url,
				notes, collaborators, position, submitted_at, is_revoked, tenant_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
		`, song.URL, int64(submitter), queueName, song.Title, int64(song.Duration/time.Second),
			dbutil.NullString(song.LyricsURL), dbutil.NullString(song.Notes),
			dbutil.NullString(song.Collaborators), position, song.SubmittedAt.Unix(), tenant)
		if isUniqueViolation(err) {
			return queue.ErrDuplicateSubmission
		}
		return err
	})
	if err != nil {
		return queue.Song{}, err
	}
	song.SubmittedAt = time.Unix(song.SubmittedAt.Unix(), 0)
	return song, nil
}

func (s *Store) SwapSong(ctx context.Context, queueName string, position int, requester snowflake.ID, in queue.SongInput) (queue.Song, error) {
	var song queue.Song
	err := dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := getSong(ctx, tx, queueName, position)
		if err != nil {
			return err
		}
		if current.SubmitterID != requester {
			return queue.ErrPermissionDenied
		}
		if current.Completed() {
			return queue.ErrAlreadyPerformed
		}

		song = current.Swapped(in, time.Unix(s.now().Unix(), 0))
		_, err = tx.ExecContext(ctx, `
			UPDATE songs SET url = ?, title = ?, duration = ?, lyrics_url = ?, notes = ?,
				collaborators = ?, submitted_at = ?, is_revoked = 0
			WHERE queue_name = ? AND position = ?
		`, song.URL, song.Title, int64(song.Duration/time.Second),
			dbutil.NullString(song.LyricsURL), dbutil.NullString(song.Notes),
			dbutil.NullString(song.Collaborators), song.SubmittedAt.Unix(), queueName, position)
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
	err := dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		song, err = getSong(ctx, tx, queueName, position)
		if err != nil {
			return err
		}
		if !isOperator && song.SubmitterID != requester {
			return queue.ErrPermissionDenied
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE songs SET is_revoked = 1 WHERE queue_name = ? AND position = ?`,
			queueName, position); err != nil {
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
	res, err := s.db.ExecContext(ctx,
		`UPDATE songs SET completed_at = ? WHERE queue_name = ? AND position = ?`,
		dbutil.NullUnix(&at), queueName, position)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return queue.ErrNotFound
	}
	return nil
}

func (s *Store) CountActiveFor(ctx context.Context, submitter snowflake.ID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM songs
		WHERE submitter_id = ? AND is_revoked = 0 AND completed_at IS NULL
	`, int64(submitter)).Scan(&n)
	return n, err
}

func (s *Store) SongAt(ctx context.Context, queueName string, position int) (queue.Song, error) {
	return getSong(ctx, s.db, queueName, position)
}

func (s *Store) ListSongs(ctx context.Context, queueName string, from int, includeCompleted bool) ([]queue.Song, error) {
	if _, err := s.GetQueue(ctx, queueName); err != nil {
		return nil, err
	}

	query := `SELECT ` + songColumns + ` FROM songs WHERE queue_name = ?`
	args := []any{queueName}
	if !includeCompleted {
		query += ` AND position >= ? AND is_revoked = 0 AND completed_at IS NULL`
		args = append(args, from)
	}
	query += ` ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query, args...)
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
