package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: FMN_GEOFENCE__COOLDOWN_SECONDS=60.
const EnvPrefix = "FMN_"

type Config struct {
	Store       StoreConfig       `koanf:"store"`
	Geofence    GeofenceConfig    `koanf:"geofence"`
	Todo        TodoConfig        `koanf:"todo"`
	Permissions PermissionsConfig `koanf:"permissions"`
	Notify      NotifyConfig      `koanf:"notify"`
	Log         LogConfig         `koanf:"log"`
	UI          UIConfig          `koanf:"ui"`
}

type StoreConfig struct {
	Backend    string `koanf:"backend"`     // sqlite, redis or memory
	SQLitePath string `koanf:"sqlite_path"` // Default: ~/.forget-me-not/reminders.db
	RedisURL   string `koanf:"redis_url"`
	Key        string `koanf:"key"` // Key the reminder list is stored under
}

type GeofenceConfig struct {
	CooldownSeconds int    `koanf:"cooldown_seconds"`
	MinIntervalMs   int    `koanf:"min_interval_ms"` // Location update cadence (time)
	MinDistanceM    int    `koanf:"min_distance_m"`  // Location update cadence (distance)
	Accuracy        string `koanf:"accuracy"`
	DefaultRadius   int    `koanf:"default_radius"`
	MinRadius       int    `koanf:"min_radius"`
	MaxRadius       int    `koanf:"max_radius"`
	StopWhenIdle    bool   `koanf:"stop_when_idle"` // Stop location updates when nothing is active
	QueueSize       int    `koanf:"queue_size"`     // Pending location fixes kept for the worker
}

// Cooldown returns the minimum time between two triggers of one reminder.
func (g GeofenceConfig) Cooldown() time.Duration {
	return time.Duration(g.CooldownSeconds) * time.Second
}

// MinInterval returns the time-based location update cadence.
func (g GeofenceConfig) MinInterval() time.Duration {
	return time.Duration(g.MinIntervalMs) * time.Millisecond
}

type TodoConfig struct {
	Key                  string `koanf:"key"`                    // Key the todo list is stored under
	CheckIntervalSeconds int    `koanf:"check_interval_seconds"` // Overdue check cadence; 0 disables
	DueTitle             string `koanf:"due_title"`
}

// CheckInterval returns how often overdue todos are announced.
func (t TodoConfig) CheckInterval() time.Duration {
	return time.Duration(t.CheckIntervalSeconds) * time.Second
}

// PermissionsConfig holds the grants reported by the permission service.
// There is no platform dialog on a desktop host, so the answers are configured.
type PermissionsConfig struct {
	Foreground    bool `koanf:"foreground"`
	Background    bool `koanf:"background"`
	Notifications bool `koanf:"notifications"`
}

type NotifyConfig struct {
	Title    string         `koanf:"title"`
	Console  bool           `koanf:"console"`
	Log      bool           `koanf:"log"`
	Telegram TelegramConfig `koanf:"telegram"`
}

type TelegramConfig struct {
	BotToken string `koanf:"bot_token"`
	ChatID   string `koanf:"chat_id"`
}

// Enabled reports whether both Telegram credentials are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // console or json
	File   string `koanf:"file"`   // Empty logs to stderr
}

type UIConfig struct {
	ColoredOutput bool `koanf:"colored_output"`
}

// Load reads defaults, then the YAML file at configPath (if present), then the
// environment. The result is not validated.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		configPath = ExpandPath(configPath)

		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Telegram credentials are commonly exported without the prefix.
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		k.Set("notify.telegram.bot_token", token)
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		k.Set("notify.telegram.chat_id", chatID)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Store.SQLitePath = ExpandPath(cfg.Store.SQLitePath)
	cfg.Log.File = ExpandPath(cfg.Log.File)

	return &cfg, nil
}

// envKey maps FMN_GEOFENCE__COOLDOWN_SECONDS to geofence.cooldown_seconds.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks the loaded configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case "redis":
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for the redis backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store backend: %s (supported: sqlite, redis, memory)", c.Store.Backend)
	}

	if c.Store.Key == "" {
		return fmt.Errorf("store.key is required")
	}

	g := c.Geofence
	if g.CooldownSeconds <= 0 {
		return fmt.Errorf("geofence.cooldown_seconds must be positive")
	}
	if g.MinIntervalMs < 0 || g.MinDistanceM < 0 {
		return fmt.Errorf("geofence update cadence must not be negative")
	}
	if g.MinRadius <= 0 || g.MinRadius > g.DefaultRadius || g.DefaultRadius > g.MaxRadius {
		return fmt.Errorf("geofence radius limits must satisfy 0 < min_radius <= default_radius <= max_radius")
	}
	if g.QueueSize <= 0 {
		return fmt.Errorf("geofence.queue_size must be positive")
	}

	if c.Todo.Key == "" || c.Todo.Key == c.Store.Key {
		return fmt.Errorf("todo.key is required and must differ from store.key")
	}
	if c.Todo.CheckIntervalSeconds < 0 {
		return fmt.Errorf("todo.check_interval_seconds must not be negative")
	}

	if c.Notify.Title == "" {
		return fmt.Errorf("notify.title is required")
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}

	return nil
}

// ExpandPath resolves a leading ~/ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	return path
}
