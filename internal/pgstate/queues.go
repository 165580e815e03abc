package pgstate

import (
	"context"
	"errors"

	"github.com/disgoorg/snowflake/v2"
	"github.com/jackc/pgx/v5"

	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

const queueColumns = `name, current_position, max_position, tenant_id, created_at`

func scanQueue(row pgx.Row) (queue.Queue, error) {
	var (
		q      queue.Queue
		tenant int64
	)
	err := row.Scan(&q.Name, &q.CurrentPosition, &q.MaxPosition, &tenant, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return queue.Queue{}, queue.ErrNotFound
	}
	if err != nil {
		return queue.Queue{}, err
	}
	q.TenantID = snowflake.ID(tenant)
	return q, nil
}

func (s *Store) GetOrCreateQueue(ctx context.Context, name string, tenant snowflake.ID) (queue.Queue, bool, error) {
	tag, err := s.db.Exec(ctx, `
        INSERT INTO queues (name, tenant_id, created_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (name) DO NOTHING
    `, name, int64(tenant), s.now().UTC())
	if err != nil {
		return queue.Queue{}, false, err
	}

	q, err := s.GetQueue(ctx, name)
	if err != nil {
		return queue.Queue{}, false, err
	}
	return q, tag.RowsAffected() == 1, nil
}

func (s *Store) GetQueue(ctx context.Context, name string) (queue.Queue, error) {
	return scanQueue(s.db.QueryRow(ctx, `SELECT `+queueColumns+` FROM queues WHERE name = $1`, name))
}

func (s *Store) ListQueues(ctx context.Context) ([]queue.Queue, error) {
	rows, err := s.db.Query(ctx, `SELECT `+queueColumns+` FROM queues ORDER BY created_at, name`)
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
	return scanQueue(s.db.QueryRow(ctx, `
        UPDATE queues SET current_position = LEAST(current_position + 1, max_position)
        WHERE name = $1
        RETURNING `+queueColumns, name))
}

func (s *Store) OverridePosition(ctx context.Context, name string, position int) (queue.Queue, error) {
	q, err := scanQueue(s.db.QueryRow(ctx, `
        UPDATE queues SET current_position = $2
        WHERE name = $1 AND $2 >= 0 AND $2 <= max_position
        RETURNING `+queueColumns, name, position))
	if !errors.Is(err, queue.ErrNotFound) {
		return q, err
	}

	// No row updated: either the queue is missing or the position is invalid.
	q, err = s.GetQueue(ctx, name)
	if err != nil {
		return queue.Queue{}, err
	}
	return q, queue.ErrOutOfRange
}
