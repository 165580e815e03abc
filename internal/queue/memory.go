package queue

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Memory is an in-process Store. It keeps the same semantics as the SQL
// stores and is used for tests and throwaway sessions.
type Memory struct {
	mu     sync.Mutex
	queues map[string]*Queue
	songs  map[string]map[int]*Song // queue name -> position -> song
	now    func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		queues: make(map[string]*Queue),
		songs:  make(map[string]map[int]*Song),
		now:    time.Now,
	}
}

// Verify Memory implements Store at compile time.
var _ Store = (*Memory)(nil)

func (m *Memory) GetOrCreateQueue(_ context.Context, name string, tenant snowflake.ID) (Queue, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if q, ok := m.queues[name]; ok {
		return *q, false, nil
	}
	q := &Queue{Name: name, TenantID: tenant, CreatedAt: m.now()}
	m.queues[name] = q
	m.songs[name] = make(map[int]*Song)
	return *q, true, nil
}

func (m *Memory) GetQueue(_ context.Context, name string) (Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[name]
	if !ok {
		return Queue{}, ErrNotFound
	}
	return *q, nil
}

func (m *Memory) ListQueues(_ context.Context) ([]Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Queue, 0, len(m.queues))
	for _, q := range m.queues {
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) AdvancePosition(_ context.Context, name string) (Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[name]
	if !ok {
		return Queue{}, ErrNotFound
	}
	if q.CurrentPosition < q.MaxPosition {
		q.CurrentPosition++
	}
	return *q, nil
}

func (m *Memory) OverridePosition(_ context.Context, name string, position int) (Queue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[name]
	if !ok {
		return Queue{}, ErrNotFound
	}
	if position < 0 || position > q.MaxPosition {
		return *q, ErrOutOfRange
	}
	q.CurrentPosition = position
	return *q, nil
}

func (m *Memory) AppendSong(_ context.Context, queueName string, submitter snowflake.ID, in SongInput) (Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.queues[queueName]
	if !ok {
		return Song{}, ErrNotFound
	}
	if m.hasSubmissionLocked(in.URL, submitter, nil) {
		return Song{}, ErrDuplicateSubmission
	}

	s := NewSong(queueName, q.MaxPosition, submitter, q.TenantID, in, m.now())
	m.songs[queueName][s.Position] = &s
	q.MaxPosition++
	return s, nil
}

func (m *Memory) SwapSong(_ context.Context, queueName string, position int, requester snowflake.ID, in SongInput) (Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.songLocked(queueName, position)
	if err != nil {
		return Song{}, err
	}
	if s.SubmitterID != requester {
		return Song{}, ErrPermissionDenied
	}
	if s.Completed() {
		return Song{}, ErrAlreadyPerformed
	}
	if in.URL != s.URL && m.hasSubmissionLocked(in.URL, requester, s) {
		return Song{}, ErrDuplicateSubmission
	}

	*s = s.Swapped(in, m.now())
	return *s, nil
}

func (m *Memory) RevokeSong(_ context.Context, queueName string, position int, requester snowflake.ID, isOperator bool) (Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.songLocked(queueName, position)
	if err != nil {
		return Song{}, err
	}
	if !isOperator && s.SubmitterID != requester {
		return Song{}, ErrPermissionDenied
	}
	s.Revoked = true
	return *s, nil
}

func (m *Memory) CompleteSong(_ context.Context, queueName string, position int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.songLocked(queueName, position)
	if err != nil {
		return err
	}
	s.CompletedAt = &at
	return nil
}

func (m *Memory) CountActiveFor(_ context.Context, submitter snowflake.ID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, songs := range m.songs {
		for _, s := range songs {
			if s.SubmitterID == submitter && s.Active() {
				n++
			}
		}
	}
	return n, nil
}

func (m *Memory) SongAt(_ context.Context, queueName string, position int) (Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.songLocked(queueName, position)
	if err != nil {
		return Song{}, err
	}
	return *s, nil
}

func (m *Memory) ListSongs(_ context.Context, queueName string, from int, includeCompleted bool) ([]Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	songs, ok := m.songs[queueName]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Song, 0, len(songs))
	for _, s := range songs {
		if !includeCompleted && (s.Position < from || !s.Active()) {
			continue
		}
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b Song) int { return a.Position - b.Position })
	return out, nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) songLocked(queueName string, position int) (*Song, error) {
	songs, ok := m.songs[queueName]
	if !ok {
		return nil, ErrNotFound
	}
	s, ok := songs[position]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// hasSubmissionLocked reports whether (url, submitter) is already stored,
// ignoring the song except.
func (m *Memory) hasSubmissionLocked(url string, submitter snowflake.ID, except *Song) bool {
	for _, songs := range m.songs {
		for _, s := range songs {
			if s != except && s.URL == url && s.SubmitterID == submitter {
				return true
			}
		}
	}
	return false
}

// SetClock replaces the time source. Test helper.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
