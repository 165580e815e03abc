package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/disgoorg/snowflake/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	defaultMaxQueued      = 2
	defaultTickInterval   = 5 * time.Second
	defaultPollInterval   = time.Second
	defaultMetaTimeout    = 30 * time.Second
	defaultRedisChannel   = "karaoke:events"
	defaultHTTPAddr       = "127.0.0.1:8080"
	defaultLogLevel       = "info"
	defaultFfprobeBinary  = "ffprobe"
	defaultYtDlpBinary    = "yt-dlp"
	defaultPlayerTemplate = "mpv --fs --no-terminal {url}"
)

type Config struct {
	GuildID   snowflake.ID   `koanf:"guild_id"`
	Operators []snowflake.ID `koanf:"operators"` // user ids allowed to manage queues

	// 0 selects the default; negative disables the limit
	MaxQueuedPerUser int `koanf:"max_queued_per_user"`

	// Queue made active at startup (optional)
	Queue string `koanf:"queue"`

	Storage     StorageConfig     `koanf:"storage"`
	Player      PlayerConfig      `koanf:"player"`
	Coordinator CoordinatorConfig `koanf:"coordinator"`
	Metadata    MetadataConfig    `koanf:"metadata"`
	Notify      NotifyConfig      `koanf:"notify"`
	HTTP        HTTPConfig        `koanf:"http"`
	Log         LogConfig         `koanf:"log"`
}

// StorageConfig selects the queue ledger backend.
type StorageConfig struct {
	Driver string `koanf:"driver"` // "sqlite" (default), "postgres" or "memory"
	Path   string `koanf:"path"`   // sqlite file; empty uses the XDG data dir
	DSN    string `koanf:"dsn"`    // postgres connection string
}

// PlayerConfig holds the external player command.
type PlayerConfig struct {
	Command []string `koanf:"command"` // argv; "{url}" is replaced by the song URL
}

// CoordinatorConfig holds playback loop intervals.
type CoordinatorConfig struct {
	TickInterval time.Duration `koanf:"tick_interval"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

// MetadataConfig holds the resolver binaries.
type MetadataConfig struct {
	YtDlpPath   string        `koanf:"ytdlp_path"`
	FfprobePath string        `koanf:"ffprobe_path"`
	Timeout     time.Duration `koanf:"timeout"`
}

// NotifyConfig enables the notification sinks. The log sink is always on.
type NotifyConfig struct {
	DBus         bool   `koanf:"dbus"`
	RedisURL     string `koanf:"redis_url"` // e.g., "redis://localhost:6379/0"
	RedisChannel string `koanf:"redis_channel"`
}

// HTTPConfig holds the command API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
	File   string `koanf:"file"` // console mode writes here instead of stderr
}

func Load() (*Config, error) {
	return LoadFiles(getConfigPaths()...)
}

// LoadFiles loads the given TOML files in order; later files win. Missing
// files are skipped.
func LoadFiles(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Path != "" {
		cfg.Storage.Path = expandPath(cfg.Storage.Path)
	}
	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that would fail later at startup.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "", DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage: postgres driver requires dsn")
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}
	if c.Coordinator.TickInterval < 0 || c.Coordinator.PollInterval < 0 {
		return fmt.Errorf("coordinator: intervals must not be negative")
	}
	return nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/karaoke/config.toml
		filepath.Join(xdg.ConfigHome, "karaoke", "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// IsOperator returns true if id is in the operator list.
func (c *Config) IsOperator(id snowflake.ID) bool {
	return slices.Contains(c.Operators, id)
}

// HasRedis returns true if the Redis notification sink is configured.
func (c *Config) HasRedis() bool {
	return c.Notify.RedisURL != ""
}

// StorageDriver returns the configured driver with the default applied.
func (c *Config) StorageDriver() string {
	if c.Storage.Driver == "" {
		return DriverSQLite
	}
	return c.Storage.Driver
}

// QuotaLimit returns the per-user queued songs limit; 0 means unlimited.
func (c *Config) QuotaLimit() int {
	switch {
	case c.MaxQueuedPerUser < 0:
		return 0
	case c.MaxQueuedPerUser == 0:
		return defaultMaxQueued
	default:
		return c.MaxQueuedPerUser
	}
}

// PlayerCommand returns the player argv with the default applied.
func (c *Config) PlayerCommand() []string {
	if len(c.Player.Command) == 0 {
		return strings.Fields(defaultPlayerTemplate)
	}
	return c.Player.Command
}

// GetCoordinatorConfig returns the loop intervals with defaults applied.
func (c *Config) GetCoordinatorConfig() CoordinatorConfig {
	cfg := c.Coordinator
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return cfg
}

// GetMetadataConfig returns the resolver settings with defaults applied.
func (c *Config) GetMetadataConfig() MetadataConfig {
	cfg := c.Metadata
	if cfg.YtDlpPath == "" {
		cfg.YtDlpPath = defaultYtDlpBinary
	}
	if cfg.FfprobePath == "" {
		cfg.FfprobePath = defaultFfprobeBinary
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultMetaTimeout
	}
	return cfg
}

// RedisChannel returns the pub/sub channel for events.
func (c *Config) RedisChannel() string {
	if c.Notify.RedisChannel == "" {
		return defaultRedisChannel
	}
	return c.Notify.RedisChannel
}

// HTTPAddr returns the API listen address.
func (c *Config) HTTPAddr() string {
	if c.HTTP.Addr == "" {
		return defaultHTTPAddr
	}
	return c.HTTP.Addr
}

// LogLevel returns the configured level name.
func (c *Config) LogLevel() string {
	if c.Log.Level == "" {
		return defaultLogLevel
	}
	return strings.ToLower(c.Log.Level)
}
