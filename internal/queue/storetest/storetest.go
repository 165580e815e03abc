// Package storetest holds the behaviour every queue.Store must share.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

const (
	tenant  snowflake.ID = 900
	userU1  snowflake.ID = 101
	userU2  snowflake.ID = 102
	opQueue              = "night1"
)

// Factory opens a fresh, empty store for one test.
type Factory func(t *testing.T) queue.Store

// Run executes the shared suite against the stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s queue.Store)
	}{
		{"GetOrCreateQueue", testGetOrCreate},
		{"GetOrCreateQueue_Concurrent", testGetOrCreateConcurrent},
		{"GetQueue_Missing", testGetQueueMissing},
		{"ListQueues", testListQueues},
		{"AppendSong_AssignsPositions", testAppendAssignsPositions},
		{"AppendSong_Concurrent", testAppendConcurrent},
		{"AppendSong_Duplicate", testAppendDuplicate},
		{"AppendSong_UnknownQueue", testAppendUnknownQueue},
		{"AdvancePosition", testAdvance},
		{"OverridePosition", testOverride},
		{"SwapSong", testSwap},
		{"SwapSong_NotOwner", testSwapNotOwner},
		{"SwapSong_Missing", testSwapMissing},
		{"SwapSong_Duplicate", testSwapDuplicate},
		{"SwapSong_Completed", testSwapCompleted},
		{"RevokeSong", testRevoke},
		{"CountActiveFor", testCountActive},
		{"ListSongs", testListSongs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func input(url string) queue.SongInput {
	return queue.SongInput{URL: url, Title: "Title of " + url, Duration: 3*time.Minute + 500*time.Millisecond}
}

func mustQueue(t *testing.T, s queue.Store) {
	t.Helper()
	_, _, err := s.GetOrCreateQueue(context.Background(), opQueue, tenant)
	require.NoError(t, err)
}

func mustAppend(t *testing.T, s queue.Store, submitter snowflake.ID, url string) queue.Song {
	t.Helper()
	song, err := s.AppendSong(context.Background(), opQueue, submitter, input(url))
	require.NoError(t, err)
	return song
}

func testGetOrCreate(t *testing.T, s queue.Store) {
	ctx := context.Background()

	q, created, err := s.GetOrCreateQueue(ctx, opQueue, tenant)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, opQueue, q.Name)
	assert.Equal(t, 0, q.CurrentPosition)
	assert.Equal(t, 0, q.MaxPosition)
	assert.Equal(t, tenant, q.TenantID)

	mustAppend(t, s, userU1, "https://example.com/a")

	q, created, err = s.GetOrCreateQueue(ctx, opQueue, tenant)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 1, q.MaxPosition)
}

func testGetOrCreateConcurrent(t *testing.T, s queue.Store) {
	ctx := context.Background()
	const callers = 8

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, c, err := s.GetOrCreateQueue(ctx, opQueue, tenant)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if c {
				created++
			}
			if q.CurrentPosition != 0 || q.MaxPosition != 0 {
				errs = append(errs, fmt.Errorf("unexpected positions %d/%d", q.CurrentPosition, q.MaxPosition))
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Equal(t, 1, created, "exactly one caller should insert the queue")
}

func testGetQueueMissing(t *testing.T, s queue.Store) {
	_, err := s.GetQueue(context.Background(), "nope")
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func testListQueues(t *testing.T, s queue.Store) {
	ctx := context.Background()
	for _, name := range []string{"first", "second", "third"} {
		_, _, err := s.GetOrCreateQueue(ctx, name, tenant)
		require.NoError(t, err)
	}

	queues, err := s.ListQueues(ctx)
	require.NoError(t, err)
	names := make([]string, len(queues))
	for i, q := range queues {
		names[i] = q.Name
	}
	sort.Strings(names)
	assert.Equal(t, []string{"first", "second", "third"}, names)
}

func testAppendAssignsPositions(t *testing.T, s queue.Store) {
	mustQueue(t, s)

	a := mustAppend(t, s, userU1, "https://example.com/a")
	b := mustAppend(t, s, userU2, "https://example.com/b")
	c := mustAppend(t, s, userU1, "https://example.com/c")

	assert.Equal(t, 0, a.Position)
	assert.Equal(t, 1, b.Position)
	assert.Equal(t, 2, c.Position)
	assert.Equal(t, userU1, a.SubmitterID)
	assert.Equal(t, opQueue, a.Queue)
	assert.Equal(t, 3*time.Minute, a.Duration, "duration is stored in whole seconds")
	assert.False(t, a.SubmittedAt.IsZero())
	assert.Nil(t, a.CompletedAt)

	q, err := s.GetQueue(context.Background(), opQueue)
	require.NoError(t, err)
	assert.Equal(t, 3, q.MaxPosition)
	assert.Equal(t, 0, q.CurrentPosition)
}

func testAppendConcurrent(t *testing.T, s queue.Store) {
	mustQueue(t, s)
	ctx := context.Background()
	const appends = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		positions []int
	)
	for i := range appends {
		wg.Add(1)
		go func() {
			defer wg.Done()
			song, err := s.AppendSong(ctx, opQueue, snowflake.ID(1000+i), input(fmt.Sprintf("https://example.com/%d", i)))
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			positions = append(positions, song.Position)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Ints(positions)
	want := make([]int, appends)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, positions, "positions must be dense and unique")

	q, err := s.GetQueue(ctx, opQueue)
	require.NoError(t, err)
	assert.Equal(t, appends, q.MaxPosition)
}

func testAppendDuplicate(t *testing.T, s queue.Store) {
	mustQueue(t, s)
	ctx := context.Background()
	mustAppend(t, s, userU1, "https://example.com/a")

	_, err := s.AppendSong(ctx, opQueue, userU1, input("https://example.com/a"))
	assert.ErrorIs(t, err, queue.ErrDuplicateSubmission)

	q, err := s.GetQueue(ctx, opQueue)
	require.NoError(t, err)
	assert.Equal(t, 1, q.MaxPosition, "failed append must not consume a position")

	// Another submitter may queue the same URL.
	b, err := s.AppendSong(ctx, opQueue, userU2, input("https://example.com/a"))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Position)
}

func testAppendUnknownQueue(t *testing.T, s queue.Store) {
	_, err := s.AppendSong(context.Background(), "missing", userU1, input("https://example.com/a"))
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func testAdvance(t *testing.T, s queue.Store) {
	mustQueue(t, s)
	ctx := context.Background()
	mustAppend(t, s, userU1, "https://example.com/a")

	q, err := s.AdvancePosition(ctx, opQueue)
	require.NoError(t, err)
	assert.Equal(t, 1, q.CurrentPosition)

	// Past the end: no-op.
	q, err = s.AdvancePosition(ctx, opQueue)
	require.NoError(t, err)
	assert.Equal(t, 1, q.CurrentPosition)
	assert.Equal(t, 1, q.MaxPosition)
	assert.True(t, q.Exhausted())

	_, err = s.AdvancePosition(ctx, "missing")
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func testOverride(t *testing.T, s queue.Store) {
	mustQueue(t, s)
	ctx := context.Background()
	mustAppend(t, s, userU1, "https://example.com/a")
	mustAppend(t, s, userU1, "https://example.com/b")

	q, err := s.OverridePosition(ctx, opQueue, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, q.CurrentPosition)

	q, err = s.OverridePosition(ctx, opQueue, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, q.CurrentPosition)

	_, err = s.OverridePosition(ctx, opQueue, 3)
	assert.ErrorIs(t, err, queue.ErrOutOfRange)
	_, err = s.OverridePosition(ctx, opQueue, -1)
	assert.ErrorIs(t, err, queue.ErrOutOfRange)

	q, err = s.GetQueue(ctx, opQueue)
	require.NoError(t, err)
	assert.Equal(t, 0, q.CurrentPosition, "failed override leaves the pointer alone")
}

func testSwap(t *testing.T, s queue.Store) {
	mustQueue(t, s)
	ctx := context.Background()
	mustAppend(t, s, userU1, "https://example.com/a")
	_, err := s.RevokeSong(ctx, opQueue, 0, userU1, false)
	require.NoError(t, err)

	in := queue.SongInput{
		URL:           "https://example.com/new",
		Title:         "New",
		Duration:      90 * time.Second,
		LyricsURL:     "https://lyrics.example.com/new",
		Collaborators: "<@102>",
		Notes:         "key +2",
	}
	song, err := s.SwapSong(ctx, opQueue, 0, userU1, in)
	require.NoError(t, err)
	assert.Equal(t, 0, song.Position)
	assert.Equal(t, "https://example.com/new", song.URL)
	assert.False(t, song.Revoked, "swap clears the revoked flag")

	stored, err := s.SongAt(ctx, opQueue, 0)
	require.NoError(t, err)
	assert.Equal(t, "New", stored.Title)
	assert.Equal(t, 90*time.Second, stored.Duration)
	assert.Equal(t, "https://lyrics.example.com/new", stored.LyricsURL)
	assert.Equal(t, "<@102>", stored.Collaborators)
	assert.Equal(t, "key +2", stored.Notes)
	assert.Equal(t, userU1, stored.SubmitterID)
	assert.False(t, stored.Revoked)

	// Swapping to the same URL is allowed.
	_, err = s.SwapSong(ctx, opQueue, 0, userU1, in)
	assert.NoError(t, err)
}

func testSwapNotOwner(t *testing.T, s queue.Store) {
	mustQueue(t, s)
	ctx := context.Background()
	before := mustAppend(t, s, userU1, "https://example.com/a")

	_, err := s.SwapSong(ctx, opQueue, 0, userU2, input("https://example.com/evil"))
	assert.ErrorIs(t, err, queue.ErrPermissionDenied)

	after, err := s.SongAt(ctx, opQueue, 0)
	require.NoError(t, err)
	assert.Equal(t, before.URL, after.URL)
	assert.Equal(t, before.Title, after.Title)
	assert.Equal(t, before.SubmitterID, after.SubmitterID)
}

func testSwapMissing(t *testing.T, s queue.Store) {
	mustQueue(t, s)
	_, err := s.SwapSong(context.Background(), opQueue, 4, userU1, input("https://example.com/a"))
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func testSwapDuplicate(t *testing.T, s queue.Store) {
	mustQueue(t, s)
	mustAppend(t, s, userU1, "https://example.com/a")
	mustAppend(t, s, userU1, "https://example.com/b")

	_, err := s.SwapSong(context.Background(), opQueue, 1, userU1, input("https://example.com/a"))
	assert.ErrorIs(t, err, queue.ErrDuplicateSubmission)
}

func testSwapCompleted(t *testing.T, s queue.Store) {
	mustQueue(t, s)
	ctx := context.Background()
	mustAppend(t, s, userU1, "https://example.com/a")
	require.NoError(t, s.CompleteSong(ctx, opQueue, 0, time.Now()))

	_, err := s.SwapSong(ctx, opQueue, 0, userU1, input("https://example.com/b"))
	assert.ErrorIs(t, err, queue.ErrAlreadyPerformed)
}

func testRevoke(t *testing.T, s queue.Store) {
	mustQueue(t, s)
	ctx := context.Background()
	mustAppend(t, s, userU1, "https://example.com/a")
	mustAppend(t, s, userU1, "https://example.com/b")

	_, err := s.RevokeSong(ctx, opQueue, 0, userU2, false)
	assert.ErrorIs(t, err, queue.ErrPermissionDenied)

	song, err := s.RevokeSong(ctx, opQueue, 0, userU1, false)
	require.NoError(t, err)
	assert.True(t, song.Revoked)

	// Idempotent.
	song, err = s.RevokeSong(ctx, opQueue, 0, userU1, false)
	require.NoError(t, err)
	assert.True(t, song.Revoked)

	// Operators may revoke anyone's song.
	song, err = s.RevokeSong(ctx, opQueue, 1, userU2, true)
	require.NoError(t, err)
	assert.True(t, song.Revoked)

	_, err = s.RevokeSong(ctx, opQueue, 7, userU1, true)
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func testCountActive(t *testing.T, s queue.Store) {
	mustQueue(t, s)
	ctx := context.Background()
	mustAppend(t, s, userU1, "https://example.com/a")
	mustAppend(t, s, userU1, "https://example.com/b")
	mustAppend(t, s, userU1, "https://example.com/c")
	mustAppend(t, s, userU2, "https://example.com/d")

	_, err := s.RevokeSong(ctx, opQueue, 1, userU1, false)
	require.NoError(t, err)
	require.NoError(t, s.CompleteSong(ctx, opQueue, 0, time.Now()))

	n, err := s.CountActiveFor(ctx, userU1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountActiveFor(ctx, userU2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.CountActiveFor(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func testListSongs(t *testing.T, s queue.Store) {
	mustQueue(t, s)
	ctx := context.Background()
	for i := range 4 {
		mustAppend(t, s, userU1, fmt.Sprintf("https://example.com/%d", i))
	}
	require.NoError(t, s.CompleteSong(ctx, opQueue, 0, time.Now()))
	_, err := s.RevokeSong(ctx, opQueue, 2, userU1, false)
	require.NoError(t, err)

	songs, err := s.ListSongs(ctx, opQueue, 1, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, positions(songs))

	all, err := s.ListSongs(ctx, opQueue, 1, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, positions(all))
	assert.True(t, all[0].Completed())
	assert.True(t, all[2].Revoked)

	// A fresh query sees later mutations.
	_, err = s.RevokeSong(ctx, opQueue, 3, userU1, false)
	require.NoError(t, err)
	songs, err = s.ListSongs(ctx, opQueue, 1, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, positions(songs))
}

func positions(songs []queue.Song) []int {
	out := make([]int, len(songs))
	for i, s := range songs {
		out[i] = s.Position
	}
	return out
}
