package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

// DefaultConfig returns the built-in configuration values.
func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"store": map[string]interface{}{
			"backend":     "sqlite",
			"sqlite_path": "~/.forget-me-not/reminders.db",
			"redis_url":   "redis://localhost:6379/0",
			"key":         "reminders",
		},
		"geofence": map[string]interface{}{
			"cooldown_seconds": 15 * 60,
			"min_interval_ms":  30000, // Check every 30 seconds
			"min_distance_m":   50,    // Or when moved 50 meters
			"accuracy":         "balanced",
			"default_radius":   200,
			"min_radius":       50,
			"max_radius":       1000,
			"stop_when_idle":   false,
			"queue_size":       16,
		},
		"todo": map[string]interface{}{
			"key":                    "todos",
			"check_interval_seconds": 60,
			"due_title":              "Task due",
		},
		"permissions": map[string]interface{}{
			"foreground":    true,
			"background":    true,
			"notifications": true,
		},
		"notify": map[string]interface{}{
			"title":   "Forget Me Not!",
			"console": true,
			"log":     true,
			"telegram": map[string]interface{}{
				"bot_token": "",
				"chat_id":   "",
			},
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "console",
			"file":   "",
		},
		"ui": map[string]interface{}{
			"colored_output": true,
		},
	}
}

// NewDefaultProvider wraps DefaultConfig as a koanf provider.
func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

// GetDefaultConfigPath returns the config file location under the user's home.
func GetDefaultConfigPath() string {
	return "~/.forget-me-not/config.yaml"
}
