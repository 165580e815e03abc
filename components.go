package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/UTD-JLA/karaoke-bot/internal/app"
	"github.com/UTD-JLA/karaoke-bot/internal/config"
	"github.com/UTD-JLA/karaoke-bot/internal/metadata"
	"github.com/UTD-JLA/karaoke-bot/internal/notify"
	"github.com/UTD-JLA/karaoke-bot/internal/pgstate"
	"github.com/UTD-JLA/karaoke-bot/internal/playback"
	"github.com/UTD-JLA/karaoke-bot/internal/player"
	"github.com/UTD-JLA/karaoke-bot/internal/queue"
	"github.com/UTD-JLA/karaoke-bot/internal/state"
)

// components holds everything both modes share.
type components struct {
	store queue.Store
	coord *playback.Coordinator
	svc   *app.Service
	rdb   *redis.Client
}

func newComponents(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*components, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c := &components{store: store}

	notifier, rdb, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.rdb = rdb

	launcher, err := player.NewCommand(cfg.PlayerCommand())
	if err != nil {
		c.Close()
		return nil, err
	}

	if cfg.Queue != "" {
		if _, _, err := store.GetOrCreateQueue(ctx, cfg.Queue, cfg.GuildID); err != nil {
			c.Close()
			return nil, fmt.Errorf("activate queue %s: %w", cfg.Queue, err)
		}
	}

	coordCfg := cfg.GetCoordinatorConfig()
	c.coord = playback.New(store, launcher, notifier, playback.Options{
		TickInterval: coordCfg.TickInterval,
		PollInterval: coordCfg.PollInterval,
		Queue:        cfg.Queue,
		Logger:       logger.With().Str("component", "playback").Logger(),
	})

	meta := cfg.GetMetadataConfig()
	resolver := metadata.NewChain(
		metadata.NewYtDlp(meta.YtDlpPath, meta.Timeout),
		metadata.NewProbe(meta.FfprobePath, meta.Timeout),
	)

	c.svc = app.New(store, c.coord, resolver, app.Options{
		MaxQueuedPerUser: cfg.QuotaLimit(),
		TenantID:         cfg.GuildID,
		Logger:           logger.With().Str("component", "app").Logger(),
	})
	return c, nil
}

// Close stops the player and releases the store and Redis connections.
func (c *components) Close() {
	if c.coord != nil {
		_ = c.coord.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
}

func openStore(ctx context.Context, cfg *config.Config) (queue.Store, error) {
	switch cfg.StorageDriver() {
	case config.DriverPostgres:
		return pgstate.Connect(ctx, cfg.Storage.DSN)
	case config.DriverMemory:
		return queue.NewMemory(), nil
	default:
		if cfg.Storage.Path != "" {
			return state.Open(cfg.Storage.Path)
		}
		return state.OpenDefault()
	}
}

// newNotifier builds the sink fan-out. The log sink is always present.
func newNotifier(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (notify.Notifier, *redis.Client, error) {
	sinks := notify.Multi{notify.NewLog(logger.With().Str("component", "notify").Logger())}

	if cfg.Notify.DBus {
		sinks = append(sinks, notify.NewDesktop())
	}

	var rdb *redis.Client
	if cfg.HasRedis() {
		opts, err := redis.ParseURL(cfg.Notify.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		sinks = append(sinks, notify.NewRedis(rdb, cfg.RedisChannel()))
	}
	return sinks, rdb, nil
}

// newLogger builds the process logger. In console mode it writes to the
// configured log file, or the XDG state dir.
func newLogger(cfg *config.Config, toFile bool) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel())
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("log level: %w", err)
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if toFile {
		path := cfg.Log.File
		if path == "" {
			if path, err = xdg.StateFile(filepath.Join("karaoke", "console.log")); err != nil {
				return zerolog.Nop(), nil, err
			}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	if cfg.Log.Pretty {
		w = zerolog.ConsoleWriter{Out: w, NoColor: toFile}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), closeFn, nil
}
