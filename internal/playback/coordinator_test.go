package playback

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UTD-JLA/karaoke-bot/internal/notify"
	"github.com/UTD-JLA/karaoke-bot/internal/player"
	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

const (
	testQueue              = "night1"
	userU1    snowflake.ID = 101
	userU2    snowflake.ID = 102
)

type fixture struct {
	store    *queue.Memory
	launcher *player.Mock
	notifier *notify.Mock
	c        *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := queue.NewMemory()
	_, _, err := store.GetOrCreateQueue(context.Background(), testQueue, 0)
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		launcher: player.NewMock(),
		notifier: notify.NewMock(),
	}
	f.c = New(f.store, f.launcher, f.notifier, Options{Queue: testQueue, Logger: zerolog.Nop()})
	return f
}

func (f *fixture) append(t *testing.T, submitter snowflake.ID, url string) queue.Song {
	t.Helper()
	s, err := f.store.AppendSong(context.Background(), testQueue, submitter, queue.SongInput{
		URL:       url,
		Title:     "Title " + url,
		Duration:  3 * time.Minute,
		LyricsURL: url + "/lyrics",
	})
	require.NoError(t, err)
	return s
}

func (f *fixture) queue(t *testing.T) queue.Queue {
	t.Helper()
	q, err := f.store.GetQueue(context.Background(), testQueue)
	require.NoError(t, err)
	return q
}

func (f *fixture) song(t *testing.T, position int) queue.Song {
	t.Helper()
	s, err := f.store.SongAt(context.Background(), testQueue, position)
	require.NoError(t, err)
	return s
}

// runLoop starts Run in the bubble and returns a stop function that waits
// for it to exit.
func (f *fixture) runLoop(t *testing.T) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.c.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestCoordinator_EndToEnd(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		q := f.queue(t)
		assert.Equal(t, 0, q.CurrentPosition)
		assert.Equal(t, 0, q.MaxPosition)

		a := f.append(t, userU1, "https://example.com/a")
		assert.Equal(t, 0, a.Position)
		assert.Equal(t, 1, f.queue(t).MaxPosition)

		f.launcher.SetPlayDuration(3 * time.Minute)
		start := time.Now()
		require.NoError(t, f.c.Tick(ctx))
		assert.GreaterOrEqual(t, time.Since(start), 3*time.Minute, "tick waits for the player")

		events := f.notifier.Events()
		require.Len(t, events, 1)
		assert.Equal(t, userU1, events[0].PerformerID)
		assert.Equal(t, a.Title, events[0].Title)
		assert.Equal(t, a.LyricsURL, events[0].LyricsURL)
		assert.Equal(t, []string{"https://example.com/a"}, f.launcher.Launches())

		assert.True(t, f.song(t, 0).Completed())
		q = f.queue(t)
		assert.Equal(t, 1, q.CurrentPosition)
		assert.Equal(t, StateIdle, f.c.State())

		// cur == max: nothing to do.
		require.NoError(t, f.c.Tick(ctx))
		assert.Len(t, f.notifier.Events(), 1)
		assert.Len(t, f.launcher.Launches(), 1)
		assert.Equal(t, 1, f.queue(t).CurrentPosition)
		assert.Equal(t, StateIdle, f.c.State())
	})
}

func TestCoordinator_SkipsRevoked(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.append(t, userU1, "https://example.com/a")
		f.append(t, userU2, "https://example.com/b")
		c := f.append(t, userU1, "https://example.com/c")

		_, err := f.store.OverridePosition(ctx, testQueue, 1)
		require.NoError(t, err)
		_, err = f.store.RevokeSong(ctx, testQueue, 1, userU2, false)
		require.NoError(t, err)

		f.launcher.SetPlayDuration(time.Minute)
		require.NoError(t, f.c.Tick(ctx))

		assert.Equal(t, []string{c.URL}, f.launcher.Launches())
		events := f.notifier.Events()
		require.Len(t, events, 1)
		assert.Equal(t, 2, events[0].Position)

		assert.False(t, f.song(t, 1).Completed(), "revoked songs are never performed")
		assert.True(t, f.song(t, 2).Completed())
		assert.Equal(t, 3, f.queue(t).CurrentPosition)
	})
}

func TestCoordinator_AllRevoked(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		for _, u := range []string{"a", "b", "c"} {
			f.append(t, userU1, "https://example.com/"+u)
		}
		for pos := range 3 {
			_, err := f.store.RevokeSong(ctx, testQueue, pos, userU1, false)
			require.NoError(t, err)
		}

		require.NoError(t, f.c.Tick(ctx))

		assert.Empty(t, f.launcher.Launches())
		assert.Empty(t, f.notifier.Events())
		assert.Equal(t, 3, f.queue(t).CurrentPosition)
		assert.Equal(t, StateIdle, f.c.State())
	})
}

func TestCoordinator_LaunchFailureCompletes(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		sub := f.c.Subscribe()

		f.append(t, userU1, "https://example.com/a")
		f.append(t, userU2, "https://example.com/b")

		launchErr := errors.New("exec: mpv: not found")
		f.launcher.SetLaunchError(launchErr)
		require.NoError(t, f.c.Tick(ctx))

		assert.True(t, f.song(t, 0).Completed(), "a failed launch counts as a performance")
		assert.Equal(t, 1, f.queue(t).CurrentPosition)

		select {
		case e := <-sub.Error:
			assert.Equal(t, "launch", e.Operation)
			assert.ErrorIs(t, e.Err, launchErr)
		default:
			t.Fatal("expected a launch error event")
		}
		select {
		case e := <-sub.SongFinished:
			assert.False(t, e.Launched)
		default:
			t.Fatal("expected a finished event")
		}
		select {
		case e := <-sub.SongStarted:
			t.Fatalf("unexpected start event for %s", e.Song.URL)
		default:
		}

		// The queue keeps moving.
		f.launcher.SetLaunchError(nil)
		f.launcher.SetPlayDuration(time.Minute)
		require.NoError(t, f.c.Tick(ctx))
		assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, f.launcher.Launches())
		assert.Equal(t, 2, f.queue(t).CurrentPosition)
	})
}

func TestCoordinator_NotifyFailureDoesNotBlock(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		f.notifier.SetError(errors.New("redis down"))
		f.launcher.SetPlayDuration(time.Minute)
		f.append(t, userU1, "https://example.com/a")

		require.NoError(t, f.c.Tick(context.Background()))

		assert.Len(t, f.launcher.Launches(), 1)
		assert.Equal(t, 1, f.queue(t).CurrentPosition)
	})
}

func TestCoordinator_NoActiveQueue(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		f.append(t, userU1, "https://example.com/a")
		f.c.SetActive("")

		require.NoError(t, f.c.Tick(context.Background()))
		assert.Empty(t, f.launcher.Launches())

		_, err := f.c.Override(context.Background(), 0)
		assert.ErrorIs(t, err, queue.ErrNoActiveQueue)
	})
}

func TestCoordinator_OverrideDuringPlayback(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.append(t, userU1, "https://example.com/a")
		f.append(t, userU2, "https://example.com/b")
		f.append(t, userU1, "https://example.com/c")

		stop := f.runLoop(t)
		defer stop()
		synctest.Wait()

		snap := f.c.Snapshot()
		require.Equal(t, StatePlaying, snap.State)
		require.NotNil(t, snap.Current)
		assert.Equal(t, 0, snap.Current.Position)
		first := f.launcher.Last()

		q, err := f.c.Override(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, q.CurrentPosition)
		assert.True(t, f.c.Running(), "loop resumes after the override")

		// The interrupted player is left alone and its song is not advanced.
		assert.True(t, first.Running())
		assert.False(t, first.Stopped())
		assert.False(t, f.song(t, 0).Completed())
		assert.Equal(t, 2, f.queue(t).CurrentPosition)

		// Nothing else starts while the interrupted player is still going.
		time.Sleep(3 * DefaultTickInterval)
		synctest.Wait()
		assert.Equal(t, []string{"https://example.com/a"}, f.launcher.Launches())
		assert.Len(t, f.notifier.Events(), 1, "the next performer is not called up yet")

		// Once it exits, the next tick plays from the override.
		first.Finish()
		time.Sleep(DefaultPollInterval)
		synctest.Wait()
		assert.Equal(t, []string{"https://example.com/a", "https://example.com/c"}, f.launcher.Launches())
		assert.True(t, f.launcher.Last().Running())

		f.launcher.Last().Finish()
		time.Sleep(DefaultPollInterval)
		synctest.Wait()

		assert.True(t, f.song(t, 2).Completed())
		assert.False(t, f.song(t, 0).Completed())
		assert.Equal(t, 3, f.queue(t).CurrentPosition)
	})
}

func TestCoordinator_OverrideOutOfRange(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		f.append(t, userU1, "https://example.com/a")

		_, err := f.c.Override(context.Background(), 5)
		assert.ErrorIs(t, err, queue.ErrOutOfRange)
		assert.True(t, f.c.Running())
		assert.Equal(t, 0, f.queue(t).CurrentPosition)
	})
}

func TestCoordinator_OverrideKeepsPause(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		f.append(t, userU1, "https://example.com/a")
		f.append(t, userU1, "https://example.com/b")

		f.c.Pause()
		_, err := f.c.Override(context.Background(), 1)
		require.NoError(t, err)
		assert.False(t, f.c.Running(), "an operator pause survives an override")
	})
}

func TestCoordinator_PauseResume(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		f.append(t, userU1, "https://example.com/a")
		f.c.Pause()

		stop := f.runLoop(t)
		defer stop()

		time.Sleep(3 * DefaultTickInterval)
		synctest.Wait()
		assert.Empty(t, f.launcher.Launches())
		assert.False(t, f.c.Running())

		f.c.Resume()
		time.Sleep(DefaultTickInterval)
		synctest.Wait()
		assert.Len(t, f.launcher.Launches(), 1)
		f.launcher.Last().Finish()
	})
}

func TestCoordinator_SwitchQueueDoesNotInterrupt(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		f.append(t, userU1, "https://example.com/a")
		_, _, err := f.store.GetOrCreateQueue(ctx, "night2", 0)
		require.NoError(t, err)

		stop := f.runLoop(t)
		defer stop()
		synctest.Wait()
		require.Equal(t, StatePlaying, f.c.State())

		f.c.SetActive("night2")
		assert.Equal(t, "night2", f.c.Active())
		f.launcher.Last().Finish()
		time.Sleep(DefaultPollInterval)
		synctest.Wait()

		assert.True(t, f.song(t, 0).Completed(), "the in-flight song finishes on its own queue")
		assert.Equal(t, 1, f.queue(t).CurrentPosition)
	})
}

func TestCoordinator_Subscription(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		sub := f.c.Subscribe()
		f.append(t, userU1, "https://example.com/a")
		f.launcher.SetPlayDuration(time.Minute)

		require.NoError(t, f.c.Tick(context.Background()))

		var states []State
		for len(states) < 4 {
			e := <-sub.StateChanged
			states = append(states, e.Current)
		}
		assert.Equal(t, []State{StateWaitingToPlay, StatePlaying, StateAdvancing, StateIdle}, states)

		started := <-sub.SongStarted
		assert.Equal(t, "https://example.com/a", started.Song.URL)
		finished := <-sub.SongFinished
		assert.True(t, finished.Launched)

		require.NoError(t, f.c.Close())
		<-sub.Done
	})
}

func TestCoordinator_CloseStopsPlayer(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		f.append(t, userU1, "https://example.com/a")

		stop := f.runLoop(t)
		synctest.Wait()
		h := f.launcher.Last()
		require.NotNil(t, h)

		require.NoError(t, f.c.Close())
		require.NoError(t, f.c.Close(), "Close is idempotent")
		stop()

		assert.True(t, h.Stopped())
		assert.False(t, f.song(t, 0).Completed())
	})
}

func TestCoordinator_CloseStopsInterruptedPlayer(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		f.append(t, userU1, "https://example.com/a")
		f.append(t, userU2, "https://example.com/b")

		stop := f.runLoop(t)
		synctest.Wait()
		first := f.launcher.Last()
		require.NotNil(t, first)

		_, err := f.c.Override(context.Background(), 1)
		require.NoError(t, err)
		time.Sleep(DefaultTickInterval)
		synctest.Wait()
		require.Len(t, f.launcher.Launches(), 1)

		require.NoError(t, f.c.Close())
		stop()

		assert.True(t, first.Stopped())
		assert.False(t, first.Running())
		assert.Len(t, f.launcher.Launches(), 1)
	})
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "Idle"},
		{StateWaitingToPlay, "WaitingToPlay"},
		{StatePlaying, "Playing"},
		{StateAdvancing, "Advancing"},
		{State(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
	if !StatePlaying.IsActive() || StateIdle.IsActive() {
		t.Error("IsActive mismatch")
	}
}
