package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UTD-JLA/karaoke-bot/internal/metadata"
	"github.com/UTD-JLA/karaoke-bot/internal/notify"
	"github.com/UTD-JLA/karaoke-bot/internal/playback"
	"github.com/UTD-JLA/karaoke-bot/internal/player"
	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

var (
	operator = Actor{ID: 1, Operator: true}
	userU1   = Actor{ID: 101}
	userU2   = Actor{ID: 102}
)

type fakeResolver struct {
	err   error
	calls int
}

func (f *fakeResolver) Resolve(_ context.Context, url string) (metadata.Info, error) {
	f.calls++
	if f.err != nil {
		return metadata.Info{}, f.err
	}
	return metadata.Info{Title: "Title of " + url, Duration: 4*time.Minute + 10*time.Second}, nil
}

func setupService(t *testing.T, quota int) (*Service, *queue.Memory, *fakeResolver) {
	t.Helper()
	store := queue.NewMemory()
	coord := playback.New(store, player.NewMock(), notify.NewMock(), playback.Options{Logger: zerolog.Nop()})
	resolver := &fakeResolver{}
	svc := New(store, coord, resolver, Options{MaxQueuedPerUser: quota, TenantID: 900, Logger: zerolog.Nop()})
	return svc, store, resolver
}

func setupActive(t *testing.T, quota int) (*Service, *queue.Memory, *fakeResolver) {
	t.Helper()
	svc, store, resolver := setupService(t, quota)
	_, err := svc.SetQueue(context.Background(), operator, "night1")
	require.NoError(t, err)
	return svc, store, resolver
}

func TestSetQueue(t *testing.T) {
	svc, _, _ := setupService(t, 2)
	ctx := context.Background()

	st, err := svc.SetQueue(ctx, operator, " night1 ")
	require.NoError(t, err)
	assert.True(t, st.Created)
	assert.Equal(t, "night1", st.Queue.Name)
	assert.EqualValues(t, 900, st.Queue.TenantID)
	assert.Equal(t, "night1", svc.NowPlaying().Active)

	st, err = svc.SetQueue(ctx, operator, "night1")
	require.NoError(t, err)
	assert.False(t, st.Created, "second call fetches")

	_, err = svc.SetQueue(ctx, userU1, "night2")
	assert.ErrorIs(t, err, queue.ErrPermissionDenied)

	_, err = svc.SetQueue(ctx, operator, "  ")
	assert.ErrorIs(t, err, ErrEmptyQueueName)

	qs, err := svc.ListQueues(ctx)
	require.NoError(t, err)
	assert.Len(t, qs, 1)
}

func TestAddSong_NoActiveQueue(t *testing.T) {
	svc, _, resolver := setupService(t, 2)

	_, err := svc.AddSong(context.Background(), userU1, SongRequest{URL: "https://example.com/a"})
	assert.ErrorIs(t, err, queue.ErrNoActiveQueue)
	assert.Zero(t, resolver.calls)
}

func TestAddSong(t *testing.T) {
	svc, _, _ := setupActive(t, 2)
	ctx := context.Background()

	song, err := svc.AddSong(ctx, userU1, SongRequest{
		URL:           "https://example.com/a",
		LyricsURL:     " https://lyrics.example.com/a ",
		Collaborators: "<@102>",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, song.Position)
	assert.Equal(t, "Title of https://example.com/a", song.Title)
	assert.Equal(t, 4*time.Minute+10*time.Second, song.Duration)
	assert.Equal(t, "https://lyrics.example.com/a", song.LyricsURL)
	assert.Equal(t, "<@102>", song.Collaborators)

	_, err = svc.AddSong(ctx, userU1, SongRequest{URL: "https://example.com/a"})
	assert.ErrorIs(t, err, queue.ErrDuplicateSubmission)

	q, err := svc.ActiveQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, q.MaxPosition)
}

func TestAddSong_Quota(t *testing.T) {
	svc, _, resolver := setupActive(t, 2)
	ctx := context.Background()

	for _, u := range []string{"a", "b"} {
		_, err := svc.AddSong(ctx, userU1, SongRequest{URL: "https://example.com/" + u})
		require.NoError(t, err)
	}
	calls := resolver.calls

	_, err := svc.AddSong(ctx, userU1, SongRequest{URL: "https://example.com/c"})
	assert.ErrorIs(t, err, queue.ErrQuotaExceeded)
	assert.Equal(t, calls, resolver.calls, "quota is checked before the lookup")

	// Other users and operators are unaffected.
	_, err = svc.AddSong(ctx, userU2, SongRequest{URL: "https://example.com/c"})
	require.NoError(t, err)
	_, err = svc.AddSong(ctx, operator, SongRequest{URL: "https://example.com/c"})
	require.NoError(t, err)

	// Revoking frees a slot.
	_, err = svc.RevokeSong(ctx, userU1, 0)
	require.NoError(t, err)
	_, err = svc.AddSong(ctx, userU1, SongRequest{URL: "https://example.com/d"})
	require.NoError(t, err)
}

func TestAddSong_MetadataFailure(t *testing.T) {
	svc, _, resolver := setupActive(t, 2)
	resolver.err = errors.Join(queue.ErrMetadataUnavailable, errors.New("yt-dlp: exit status 1"))

	_, err := svc.AddSong(context.Background(), userU1, SongRequest{URL: "https://example.com/a"})
	assert.ErrorIs(t, err, queue.ErrMetadataUnavailable)

	q, err := svc.ActiveQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, q.MaxPosition, "nothing persisted")
}

func TestValidateURL(t *testing.T) {
	local := filepath.Join(t.TempDir(), "song.mp4")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0o600))

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://www.youtube.com/watch?v=abc"},
		{name: "http", url: "http://example.com/a.mp4"},
		{name: "file url", url: "file:///srv/karaoke/a.mp4"},
		{name: "local path", url: local},
		{name: "empty", url: "", wantErr: true},
		{name: "missing host", url: "https:///a", wantErr: true},
		{name: "other scheme", url: "ftp://example.com/a", wantErr: true},
		{name: "missing local", url: "/nonexistent/song.mp4", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, queue.ErrInvalidURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSwapSong(t *testing.T) {
	svc, _, _ := setupActive(t, 2)
	ctx := context.Background()

	_, err := svc.AddSong(ctx, userU1, SongRequest{URL: "https://example.com/a"})
	require.NoError(t, err)

	song, err := svc.SwapSong(ctx, userU1, 0, SongRequest{URL: "https://example.com/b", Notes: "key -2"})
	require.NoError(t, err)
	assert.Equal(t, 0, song.Position)
	assert.Equal(t, "https://example.com/b", song.URL)
	assert.Equal(t, "Title of https://example.com/b", song.Title)
	assert.Equal(t, "key -2", song.Notes)

	_, err = svc.SwapSong(ctx, userU2, 0, SongRequest{URL: "https://example.com/c"})
	assert.ErrorIs(t, err, queue.ErrPermissionDenied)

	_, err = svc.SwapSong(ctx, userU1, 0, SongRequest{URL: "nope"})
	assert.ErrorIs(t, err, queue.ErrInvalidURL)
}

func TestRevokeSong(t *testing.T) {
	svc, _, _ := setupActive(t, 2)
	ctx := context.Background()

	_, err := svc.AddSong(ctx, userU1, SongRequest{URL: "https://example.com/a"})
	require.NoError(t, err)

	_, err = svc.RevokeSong(ctx, userU2, 0)
	assert.ErrorIs(t, err, queue.ErrPermissionDenied)

	song, err := svc.RevokeSong(ctx, operator, 0)
	require.NoError(t, err)
	assert.True(t, song.Revoked)
}

func TestListSongs(t *testing.T) {
	svc, store, _ := setupActive(t, 0)
	ctx := context.Background()

	for _, u := range []string{"a", "b", "c"} {
		_, err := svc.AddSong(ctx, userU1, SongRequest{URL: "https://example.com/" + u})
		require.NoError(t, err)
	}
	_, err := svc.AddSong(ctx, userU2, SongRequest{URL: "https://example.com/d"})
	require.NoError(t, err)

	require.NoError(t, store.CompleteSong(ctx, "night1", 0, time.Now()))
	_, err = store.AdvancePosition(ctx, "night1")
	require.NoError(t, err)
	_, err = svc.RevokeSong(ctx, userU1, 2)
	require.NoError(t, err)

	upcoming, err := svc.ListSongs(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, positions(upcoming))

	all, err := svc.ListSongs(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, positions(all))

	mine, err := svc.MySongs(ctx, userU1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, positions(mine))
}

func TestJumpTo(t *testing.T) {
	svc, _, _ := setupActive(t, 0)
	ctx := context.Background()

	for _, u := range []string{"a", "b"} {
		_, err := svc.AddSong(ctx, userU1, SongRequest{URL: "https://example.com/" + u})
		require.NoError(t, err)
	}

	_, err := svc.JumpTo(ctx, userU1, 1)
	assert.ErrorIs(t, err, queue.ErrPermissionDenied)

	q, err := svc.JumpTo(ctx, operator, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, q.CurrentPosition)

	_, err = svc.JumpTo(ctx, operator, 3)
	assert.ErrorIs(t, err, queue.ErrOutOfRange)
}

func TestPauseResume(t *testing.T) {
	svc, _, _ := setupService(t, 0)

	assert.ErrorIs(t, svc.Pause(userU1), queue.ErrPermissionDenied)
	require.NoError(t, svc.Pause(operator))
	assert.False(t, svc.NowPlaying().Running)
	assert.ErrorIs(t, svc.Resume(userU1), queue.ErrPermissionDenied)
	require.NoError(t, svc.Resume(operator))
	assert.True(t, svc.NowPlaying().Running)
	assert.Equal(t, playback.StateIdle, svc.NowPlaying().State)
}

func positions(songs []queue.Song) []int {
	out := make([]int, 0, len(songs))
	for _, s := range songs {
		out = append(out, s.Position)
	}
	return out
}
