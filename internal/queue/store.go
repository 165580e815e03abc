package queue

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Store is the durable home of queues and songs.
//
// Every counter mutation (AppendSong, AdvancePosition, OverridePosition) is a
// single atomic read-modify-write; callers must not cache counters across
// calls.
type Store interface {
	// GetOrCreateQueue returns the named queue, inserting it at (0, 0) when
	// missing. created reports whether this call inserted the row.
	GetOrCreateQueue(ctx context.Context, name string, tenant snowflake.ID) (q Queue, created bool, err error)
	GetQueue(ctx context.Context, name string) (Queue, error)
	ListQueues(ctx context.Context) ([]Queue, error)

	// AdvancePosition moves the pointer forward by one. It is a no-op once
	// the pointer reached MaxPosition.
	AdvancePosition(ctx context.Context, name string) (Queue, error)
	// OverridePosition sets the pointer directly. Positions past
	// MaxPosition fail with ErrOutOfRange.
	OverridePosition(ctx context.Context, name string, position int) (Queue, error)

	// AppendSong assigns the queue's MaxPosition to a new song and bumps
	// MaxPosition, all or nothing.
	AppendSong(ctx context.Context, queueName string, submitter snowflake.ID, in SongInput) (Song, error)
	// SwapSong replaces the content of the song at position. Only its
	// submitter may swap it.
	SwapSong(ctx context.Context, queueName string, position int, requester snowflake.ID, in SongInput) (Song, error)
	// RevokeSong marks the song at position as skipped. Idempotent.
	RevokeSong(ctx context.Context, queueName string, position int, requester snowflake.ID, isOperator bool) (Song, error)
	// CompleteSong records the end of the song's performance.
	CompleteSong(ctx context.Context, queueName string, position int, at time.Time) error

	// CountActiveFor counts the submitter's songs that are neither revoked
	// nor completed, across all queues.
	CountActiveFor(ctx context.Context, submitter snowflake.ID) (int, error)
	SongAt(ctx context.Context, queueName string, position int) (Song, error)
	// ListSongs returns the songs of a queue in position order. Unless
	// includeCompleted is set, only active songs at or after from are
	// returned.
	ListSongs(ctx context.Context, queueName string, from int, includeCompleted bool) ([]Song, error)

	Close() error
}
