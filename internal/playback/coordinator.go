// Package playback drives the active queue: it announces the next performer,
// runs the external player, and advances the queue once the player exits.
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/UTD-JLA/karaoke-bot/internal/notify"
	"github.com/UTD-JLA/karaoke-bot/internal/player"
	"github.com/UTD-JLA/karaoke-bot/internal/queue"
)

const (
	DefaultTickInterval  = 5 * time.Second
	DefaultPollInterval  = time.Second
	defaultNotifyTimeout = 10 * time.Second
)

// Options configures a Coordinator. Zero values select the defaults.
type Options struct {
	TickInterval  time.Duration
	PollInterval  time.Duration
	NotifyTimeout time.Duration
	// Queue is the initially active queue; empty leaves the coordinator Idle.
	Queue  string
	Logger zerolog.Logger
}

// Snapshot is a point-in-time view of the coordinator.
type Snapshot struct {
	State   State
	Active  string
	Running bool
	// Current is the song being announced or performed, nil otherwise.
	Current *queue.Song
}

// Coordinator owns the tick loop. At most one tick is in flight at a time;
// operator overrides wait for it through the interrupt protocol.
type Coordinator struct {
	store    queue.Store
	launcher player.Launcher
	notifier notify.Notifier
	logger   zerolog.Logger

	tickInterval  time.Duration
	pollInterval  time.Duration
	notifyTimeout time.Duration

	// sem is held for the whole duration of a tick.
	sem chan struct{}

	mu      sync.RWMutex
	active  string
	state   State
	current *queue.Song
	handle  player.Handle
	// orphan is a player whose wait was interrupted by an override. No new
	// player is launched until it exits.
	orphan     player.Handle
	running    bool
	cancelTick context.CancelFunc
	interrupts int

	subs   []*Subscription
	subsMu sync.RWMutex

	done   chan struct{}
	closed bool
}

// New creates a coordinator. The loop starts enabled but does nothing until
// Run is called.
func New(store queue.Store, launcher player.Launcher, notifier notify.Notifier, opts Options) *Coordinator {
	c := &Coordinator{
		store:         store,
		launcher:      launcher,
		notifier:      notifier,
		logger:        opts.Logger,
		tickInterval:  opts.TickInterval,
		pollInterval:  opts.PollInterval,
		notifyTimeout: opts.NotifyTimeout,
		sem:           make(chan struct{}, 1),
		active:        opts.Queue,
		running:       true,
		done:          make(chan struct{}),
	}
	if c.tickInterval <= 0 {
		c.tickInterval = DefaultTickInterval
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.notifyTimeout <= 0 {
		c.notifyTimeout = defaultNotifyTimeout
	}
	if c.notifier == nil {
		c.notifier = notify.Multi{}
	}
	return c
}

// Run ticks immediately and then every TickInterval until ctx is done or the
// coordinator is closed. Ticks are skipped while the loop is paused.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	c.logger.Info().Dur("tick", c.tickInterval).Str("queue", c.Active()).Msg("playback loop started")
	for {
		if err := c.tick(ctx, true); err != nil && ctx.Err() == nil {
			c.logger.Error().Err(err).Msg("tick failed")
		}

		select {
		case <-ctx.Done():
			c.logger.Info().Msg("playback loop stopped")
			return nil
		case <-c.done:
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs a single tick now, even if the loop is paused. It blocks while
// another tick is in flight.
func (c *Coordinator) Tick(ctx context.Context) error {
	return c.tick(ctx, false)
}

func (c *Coordinator) tick(ctx context.Context, loop bool) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	// tickCtx is canceled by an override; the player keeps running.
	tickCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.closed || (loop && !c.running) {
		c.mu.Unlock()
		return nil
	}
	c.cancelTick = cancel
	if c.interrupts > 0 {
		cancel()
	}
	name := c.active
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.cancelTick = nil
		c.mu.Unlock()
	}()

	if name == "" {
		c.setState(StateIdle)
		return nil
	}

	if !c.awaitOrphan(tickCtx) {
		return nil
	}

	song, ok, err := c.nextSong(tickCtx, name)
	if err != nil {
		c.setState(StateIdle)
		if interrupted(ctx, tickCtx) {
			return nil
		}
		return err
	}
	if !ok {
		c.setState(StateIdle)
		return nil
	}
	return c.perform(ctx, tickCtx, song)
}

// nextSong returns the first non-revoked song at or after the pointer,
// advancing over revoked ones. At most max-cur songs are examined.
func (c *Coordinator) nextSong(ctx context.Context, name string) (queue.Song, bool, error) {
	q, err := c.store.GetQueue(ctx, name)
	if err != nil {
		return queue.Song{}, false, err
	}

	for range q.Remaining() {
		song, err := c.store.SongAt(ctx, name, q.CurrentPosition)
		switch {
		case err == nil && !song.Revoked:
			return song, true, nil
		case err == nil:
			c.logger.Debug().Str("queue", name).Int("position", song.Position).Msg("skipping revoked song")
		case errors.Is(err, queue.ErrNotFound):
			c.logger.Warn().Str("queue", name).Int("position", q.CurrentPosition).Msg("no song at position, skipping")
		default:
			return queue.Song{}, false, err
		}

		if q, err = c.store.AdvancePosition(ctx, name); err != nil {
			return queue.Song{}, false, err
		}
	}
	return queue.Song{}, false, nil
}

func (c *Coordinator) perform(ctx, tickCtx context.Context, song queue.Song) error {
	log := c.logger.With().Str("queue", song.Queue).Int("position", song.Position).Str("url", song.URL).Logger()

	if tickCtx.Err() != nil {
		c.setState(StateIdle)
		return nil
	}

	c.setCurrent(&song)
	c.setState(StateWaitingToPlay)
	c.announce(ctx, song)

	if tickCtx.Err() != nil {
		c.setCurrent(nil)
		c.setState(StateIdle)
		return nil
	}

	c.setState(StatePlaying)

	h, err := c.launcher.Launch(ctx, song.URL)
	launched := err == nil
	if err != nil {
		// A player that cannot start counts as a finished performance.
		log.Error().Err(err).Msg("player launch failed")
		c.broadcast(func(s *Subscription) {
			s.sendError(ErrorEvent{Operation: "launch", URL: song.URL, Err: err})
		})
	} else {
		log.Info().Str("title", song.Title).Msg("performance started")
		c.setHandle(h)
		c.broadcast(func(s *Subscription) { s.sendStarted(SongStarted{Song: song}) })
		if !c.waitFor(tickCtx, h) {
			log.Info().Msg("stopped waiting for player")
			c.orphanHandle(h)
			c.setCurrent(nil)
			c.setState(StateIdle)
			return nil
		}
		// Any exit status completes the song.
		if err := h.Wait(); err != nil {
			log.Debug().Err(err).Msg("player exited with error")
		}
	}

	c.setState(StateAdvancing)
	err = c.advance(ctx, song)
	c.setCurrent(nil)
	c.setState(StateIdle)
	if err != nil {
		c.broadcast(func(s *Subscription) {
			s.sendError(ErrorEvent{Operation: "advance", URL: song.URL, Err: err})
		})
		return err
	}

	log.Info().Bool("launched", launched).Msg("performance finished")
	c.broadcast(func(s *Subscription) { s.sendFinished(SongFinished{Song: song, Launched: launched}) })
	return nil
}

// announce notifies the performer. Failures are logged and never hold up
// playback.
func (c *Coordinator) announce(ctx context.Context, song queue.Song) {
	nctx, cancel := context.WithTimeout(ctx, c.notifyTimeout)
	defer cancel()

	if err := c.notifier.Notify(nctx, notify.NewEvent(song)); err != nil {
		c.logger.Warn().Err(err).Str("queue", song.Queue).Int("position", song.Position).Msg("notification failed")
		c.broadcast(func(s *Subscription) {
			s.sendError(ErrorEvent{Operation: "notify", URL: song.URL, Err: err})
		})
	}
}

// waitFor polls the player until it exits. It returns false if ctx ended
// first; the player is left running.
func (c *Coordinator) waitFor(ctx context.Context, h player.Handle) bool {
	if !h.Running() {
		return true
	}
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if !h.Running() {
				return true
			}
		}
	}
}

// awaitOrphan blocks until an interrupted player exits. It returns false if
// ctx ended first.
func (c *Coordinator) awaitOrphan(ctx context.Context) bool {
	c.mu.RLock()
	h := c.orphan
	c.mu.RUnlock()
	if h == nil {
		return true
	}

	c.logger.Debug().Msg("waiting for interrupted player to exit")
	if !c.waitFor(ctx, h) {
		return false
	}
	c.mu.Lock()
	if c.orphan == h {
		c.orphan = nil
	}
	c.mu.Unlock()
	return true
}

func (c *Coordinator) advance(ctx context.Context, song queue.Song) error {
	var errs []error
	if err := c.store.CompleteSong(ctx, song.Queue, song.Position, time.Now()); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.store.AdvancePosition(ctx, song.Queue); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func interrupted(ctx, tickCtx context.Context) bool {
	return tickCtx.Err() != nil && ctx.Err() == nil
}

// Override moves the active queue's pointer to position. It pauses the loop,
// interrupts the in-flight tick, waits for that tick to return, applies the
// override and restores the loop. A player interrupted this way keeps
// running; the next song starts once it exits.
func (c *Coordinator) Override(ctx context.Context, position int) (queue.Queue, error) {
	name := c.Active()
	if name == "" {
		return queue.Queue{}, queue.ErrNoActiveQueue
	}

	c.mu.Lock()
	wasRunning := c.running
	c.running = false
	c.interrupts++
	if c.cancelTick != nil {
		c.cancelTick()
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.interrupts--
		if wasRunning {
			c.running = true
		}
		c.mu.Unlock()
	}()

	if err := c.acquire(ctx); err != nil {
		return queue.Queue{}, err
	}
	defer c.release()

	q, err := c.store.OverridePosition(ctx, name, position)
	if err != nil {
		return q, err
	}

	c.logger.Info().Str("queue", name).Int("position", position).Msg("position overridden")
	c.broadcast(func(s *Subscription) { s.sendPosition(PositionChange{Queue: name, Position: position}) })
	return q, nil
}

// SetActive switches the queue the loop plays from. An in-flight tick
// finishes on the queue it started with.
func (c *Coordinator) SetActive(name string) {
	c.mu.Lock()
	prev := c.active
	c.active = name
	c.mu.Unlock()

	if prev != name {
		c.logger.Info().Str("queue", name).Str("previous", prev).Msg("active queue changed")
	}
}

// Active returns the active queue name, empty if none.
func (c *Coordinator) Active() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Pause stops the loop from starting new ticks. A song being performed
// plays to the end and is completed normally.
func (c *Coordinator) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
}

// Resume re-enables the loop.
func (c *Coordinator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
}

// Running reports whether the loop is enabled.
func (c *Coordinator) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Snapshot returns the current state, active queue and song.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{State: c.state, Active: c.active, Running: c.running}
	if c.current != nil {
		song := *c.current
		snap.Current = &song
	}
	return snap
}

// Subscribe creates a new event subscription.
func (c *Coordinator) Subscribe() *Subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	sub := newSubscription()
	c.subs = append(c.subs, sub)
	return sub
}

// Close stops the loop, terminates any running player and closes all
// subscriptions.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	if c.cancelTick != nil {
		c.cancelTick()
	}
	handles := []player.Handle{c.handle, c.orphan}
	c.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if h == nil {
			continue
		}
		if err := h.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	c.subsMu.Lock()
	for _, sub := range c.subs {
		sub.close()
	}
	c.subs = nil
	c.subsMu.Unlock()

	return errors.Join(errs...)
}

func (c *Coordinator) acquire(ctx context.Context) error {
	select {
	case c.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) release() {
	<-c.sem
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()

	if prev != s {
		c.broadcast(func(sub *Subscription) { sub.sendState(StateChange{Previous: prev, Current: s}) })
	}
}

func (c *Coordinator) setCurrent(song *queue.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = song
	if song == nil {
		c.handle = nil
	}
}

func (c *Coordinator) setHandle(h player.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = h
}

func (c *Coordinator) orphanHandle(h player.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orphan = h
	c.handle = nil
}

func (c *Coordinator) broadcast(fn func(*Subscription)) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		fn(sub)
	}
}
