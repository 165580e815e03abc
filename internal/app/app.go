// Package app is the command facade shared by the HTTP API and the console.
// Every capability check lives here; callers only identify the actor.
package app

import (
	"context"
	"errors"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/rs/zerolog"

	"github.com/UTD-JLA/karaoke-bot/internal/metadata"
	"github.com/UTD-JLA/karaoke-bot/internal/playback"
	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

// ErrEmptyQueueName is returned when a queue name is blank.
var ErrEmptyQueueName = errors.New("queue name is empty")

// Actor is the user issuing a command. Authentication and role lookup
// happen before the call.
type Actor struct {
	ID       snowflake.ID
	Operator bool
}

// Playback is the part of the coordinator the commands drive.
type Playback interface {
	Active() string
	SetActive(name string)
	Override(ctx context.Context, position int) (queue.Queue, error)
	Pause()
	Resume()
	Snapshot() playback.Snapshot
}

// Verify the coordinator satisfies Playback at compile time.
var _ Playback = (*playback.Coordinator)(nil)

// Options configures a Service.
type Options struct {
	// MaxQueuedPerUser limits active songs per non-operator; 0 disables it.
	MaxQueuedPerUser int
	TenantID         snowflake.ID
	Logger           zerolog.Logger
}

// Service implements the karaoke commands.
type Service struct {
	store    queue.Store
	playback Playback
	resolver metadata.Resolver
	quota    int
	tenant   snowflake.ID
	logger   zerolog.Logger
}

// New creates a Service.
func New(store queue.Store, pb Playback, resolver metadata.Resolver, opts Options) *Service {
	return &Service{
		store:    store,
		playback: pb,
		resolver: resolver,
		quota:    opts.MaxQueuedPerUser,
		tenant:   opts.TenantID,
		logger:   opts.Logger,
	}
}

// QueueStatus is the result of SetQueue.
type QueueStatus struct {
	Queue   queue.Queue
	Created bool
}

// SetQueue fetches or creates the named queue and makes it active.
func (s *Service) SetQueue(ctx context.Context, actor Actor, name string) (QueueStatus, error) {
	if err := requireOperator(actor); err != nil {
		return QueueStatus{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return QueueStatus{}, ErrEmptyQueueName
	}

	q, created, err := s.store.GetOrCreateQueue(ctx, name, s.tenant)
	if err != nil {
		return QueueStatus{}, err
	}
	s.playback.SetActive(q.Name)

	s.logger.Info().
		Str("queue", q.Name).
		Bool("created", created).
		Int("current", q.CurrentPosition).
		Int("max", q.MaxPosition).
		Uint64("actor", uint64(actor.ID)).
		Msg("queue activated")
	return QueueStatus{Queue: q, Created: created}, nil
}

// ListQueues returns every queue, oldest first.
func (s *Service) ListQueues(ctx context.Context) ([]queue.Queue, error) {
	return s.store.ListQueues(ctx)
}

// ActiveQueue returns the active queue.
func (s *Service) ActiveQueue(ctx context.Context) (queue.Queue, error) {
	name, err := s.active()
	if err != nil {
		return queue.Queue{}, err
	}
	return s.store.GetQueue(ctx, name)
}

// JumpTo moves the playback pointer of the active queue. The song being
// performed is not stopped.
func (s *Service) JumpTo(ctx context.Context, actor Actor, position int) (queue.Queue, error) {
	if err := requireOperator(actor); err != nil {
		return queue.Queue{}, err
	}
	q, err := s.playback.Override(ctx, position)
	if err != nil {
		return q, err
	}
	s.logger.Info().Str("queue", q.Name).Int("position", position).Uint64("actor", uint64(actor.ID)).Msg("jumped")
	return q, nil
}

// Pause stops the playback loop from starting new songs.
func (s *Service) Pause(actor Actor) error {
	if err := requireOperator(actor); err != nil {
		return err
	}
	s.playback.Pause()
	return nil
}

// Resume restarts the playback loop.
func (s *Service) Resume(actor Actor) error {
	if err := requireOperator(actor); err != nil {
		return err
	}
	s.playback.Resume()
	return nil
}

// NowPlaying reports the coordinator state and the song being performed.
func (s *Service) NowPlaying() playback.Snapshot {
	return s.playback.Snapshot()
}

func (s *Service) active() (string, error) {
	name := s.playback.Active()
	if name == "" {
		return "", queue.ErrNoActiveQueue
	}
	return name, nil
}

func requireOperator(actor Actor) error {
	if !actor.Operator {
		return queue.ErrPermissionDenied
	}
	return nil
}
