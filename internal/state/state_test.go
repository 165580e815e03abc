package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UTD-JLA/karaoke-bot/internal/queue"
	"github.com/UTD-JLA/karaoke-bot/internal/queue/storetest"
)

// setupTestStore opens a file-backed store in a temp dir. A file is used
// instead of :memory: so concurrent connections share one database.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "karaoke.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) queue.Store { return setupTestStore(t) })
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "karaoke.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "karaoke.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, _, err = s.GetOrCreateQueue(ctx, "night1", 5)
	require.NoError(t, err)
	_, err = s.AppendSong(ctx, "night1", 101, queue.SongInput{
		URL:       "https://example.com/a",
		Title:     "A",
		Duration:  200 * time.Second,
		LyricsURL: "https://lyrics.example.com/a",
	})
	require.NoError(t, err)
	_, err = s.AdvancePosition(ctx, "night1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Schema init must be idempotent.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	q, err := s.GetQueue(ctx, "night1")
	require.NoError(t, err)
	assert.Equal(t, 1, q.CurrentPosition)
	assert.Equal(t, 1, q.MaxPosition)

	song, err := s.SongAt(ctx, "night1", 0)
	require.NoError(t, err)
	assert.Equal(t, "A", song.Title)
	assert.Equal(t, 200*time.Second, song.Duration)
	assert.Equal(t, "https://lyrics.example.com/a", song.LyricsURL)
	assert.Empty(t, song.Notes)
}

func TestInitSchema_Version(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	var version int
	err := s.DB().QueryRow(`SELECT version FROM schema_version`).Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestInitSchema_Rerun(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	require.NoError(t, initSchema(s.DB()))

	for _, table := range []string{"queues", "songs"} {
		var n int
		err := s.DB().QueryRow(
			`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = 'tenant_id'`, table,
		).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}

	var versions int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&versions))
	assert.Equal(t, 1, versions)
}

func TestCompleteSong(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()
	ctx := context.Background()

	_, _, err := s.GetOrCreateQueue(ctx, "night1", 0)
	require.NoError(t, err)
	_, err = s.AppendSong(ctx, "night1", 101, queue.SongInput{URL: "https://example.com/a"})
	require.NoError(t, err)

	at := time.Unix(1700000000, 0)
	require.NoError(t, s.CompleteSong(ctx, "night1", 0, at))

	song, err := s.SongAt(ctx, "night1", 0)
	require.NoError(t, err)
	require.NotNil(t, song.CompletedAt)
	assert.True(t, at.Equal(*song.CompletedAt))

	// Replaying overwrites the completion time.
	later := at.Add(time.Hour)
	require.NoError(t, s.CompleteSong(ctx, "night1", 0, later))
	song, err = s.SongAt(ctx, "night1", 0)
	require.NoError(t, err)
	assert.True(t, later.Equal(*song.CompletedAt))

	assert.ErrorIs(t, s.CompleteSong(ctx, "night1", 9, at), queue.ErrNotFound)
}

func TestAppendSong_DuplicateAcrossQueues(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()
	ctx := context.Background()

	for _, name := range []string{"night1", "night2"} {
		_, _, err := s.GetOrCreateQueue(ctx, name, 0)
		require.NoError(t, err)
	}
	_, err := s.AppendSong(ctx, "night1", 101, queue.SongInput{URL: "https://example.com/a"})
	require.NoError(t, err)

	_, err = s.AppendSong(ctx, "night2", 101, queue.SongInput{URL: "https://example.com/a"})
	assert.ErrorIs(t, err, queue.ErrDuplicateSubmission)

	q, err := s.GetQueue(ctx, "night2")
	require.NoError(t, err)
	assert.Equal(t, 0, q.MaxPosition)
}

func TestDSN(t *testing.T) {
	got := dsn("/tmp/k.db")
	assert.Contains(t, got, "file:/tmp/k.db?")
	assert.Contains(t, got, "_pragma=journal_mode(WAL)")
	assert.Contains(t, got, "_pragma=foreign_keys(1)")
	assert.Contains(t, got, "_txlock=immediate")
}
