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

const queueColumns = `name, current_position, max_position, tenant_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueue(row rowScanner) (queue.Queue, error) {
	var (
		q         queue.Queue
		tenant    int64
		createdAt int64
	)
	err := row.Scan(&q.Name, &q.CurrentPosition, &q.MaxPosition, &tenant, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return queue.Queue{}, queue.ErrNotFound
	}
	if err != nil {
		return queue.Queue{}, err
	}
	q.TenantID = snowflake.ID(tenant)
	q.CreatedAt = time.Unix(createdAt, 0)
	return q, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getQueue(ctx context.Context, q querier, name string) (queue.Queue, error) {
	return scanQueue(q.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM queues WHERE name = ?`, name))
}

func (s *Store) GetOrCreateQueue(ctx context.Context, name string, tenant snowflake.ID) (queue.Queue, bool, error) {
	var (
		q       queue.Queue
		created bool
	)
	err := dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO queues (name, tenant_id, created_at)
			VALUES (?, ?, ?)
			ON CONFLICT(name) DO NOTHING
		`, name, int64(tenant), s.now().Unix())
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		created = n == 1

		q, err = getQueue(ctx, tx, name)
		return err
	})
	if err != nil {
		return queue.Queue{}, false, err
	}
	return q, created, nil
}

func (s *Store) GetQueue(ctx context.Context, name string) (queue.Queue, error) {
	return getQueue(ctx, s.db, name)
}

func (s *Store) ListQueues(ctx context.Context) ([]queue.Queue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+queueColumns+` FROM queues ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queues []queue.Queue
	for rows.Next() {
		q, err := scanQueue(rows)
		if err != nil {
			return nil, err
		}
		queues = append(queues, q)
	}
	return queues, rows.Err()
}

func (s *Store) AdvancePosition(ctx context.Context, name string) (queue.Queue, error) {
	var q queue.Queue
	err := dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE queues SET current_position = current_position + 1
			WHERE name = ? AND current_position < max_position
		`, name)
		if err != nil {
			return err
		}
		q, err = getQueue(ctx, tx, name)
		return err
	})
	return q, err
}

func (s *Store) OverridePosition(ctx context.Context, name string, position int) (queue.Queue, error) {
	var q queue.Queue
	err := dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		q, err = getQueue(ctx, tx, name)
		if err != nil {
			return err
		}
		if position < 0 || position > q.MaxPosition {
			return queue.ErrOutOfRange
		}
		if _, err := tx.ExecContext(ctx, `UPDATE queues SET current_position = ? WHERE name = ?`, position, name); err != nil {
			return err
		}
		q.CurrentPosition = position
		return nil
	})
	return q, err
}
