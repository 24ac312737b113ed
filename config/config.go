package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/sirupsen/logrus"

	"appraisal/server/internal/measurement"
)

type Config struct {
	Server struct {
		Port int `env:"SERVER_PORT" envDefault:"5250"`

		// Origins allowed by the CORS middleware
		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	}

	Database struct {
		Path string `env:"DATABASE_PATH" envDefault:"database/appraisal.db"`
	}

	// RatePersistence configures the debounced rate preset writes
	RatePersistence struct {
		// Quiet period after the last rate edit before a write is queued (in milliseconds)
		DebounceMillis int `env:"RATE_SAVE_DEBOUNCE_MS" envDefault:"1000"`

		// Maximum number of batches waiting to be written
		QueueSize int `env:"RATE_SAVE_QUEUE_SIZE" envDefault:"100"`

		// Maximum number of retries for failed writes
		MaxRetries int `env:"RATE_SAVE_MAX_RETRIES" envDefault:"0"`

		// Delay between retries in seconds
		RetryDelay int `env:"RATE_SAVE_RETRY_DELAY" envDefault:"1"`
	}

	Engine struct {
		// Unit system area values and area rates are expressed in
		CalculationSystem string `env:"CALCULATION_SYSTEM" envDefault:"imperial"`

		// Unit system new sessions render labels in
		DisplaySystem string `env:"DISPLAY_SYSTEM" envDefault:"imperial"`

		// Optional JSON file of organization presets seeded into the store at startup
		PresetFile string `env:"RATE_PRESET_FILE"`

		DefaultOrganization string `env:"DEFAULT_ORGANIZATION" envDefault:"default"`
	}

	Session struct {
		// Sessions unused for this long are evicted; 0 keeps them until deleted
		IdleTimeoutMinutes int `env:"SESSION_IDLE_TIMEOUT_MINUTES" envDefault:"240"`

		// How often idle sessions are swept (in seconds)
		SweepIntervalSeconds int `env:"SESSION_SWEEP_INTERVAL_SECONDS" envDefault:"60"`
	}

	// Telegram notifies operators of failed rate saves when both values are set
	Telegram struct {
		BotToken string `env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `env:"TELEGRAM_CHAT_ID"`
		APIURL   string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env parsing cannot
func (c *Config) Validate() error {
	if _, ok := measurement.ParseSystem(c.Engine.CalculationSystem); !ok {
		return fmt.Errorf("invalid CALCULATION_SYSTEM %q", c.Engine.CalculationSystem)
	}
	if _, ok := measurement.ParseSystem(c.Engine.DisplaySystem); !ok {
		return fmt.Errorf("invalid DISPLAY_SYSTEM %q", c.Engine.DisplaySystem)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if c.RatePersistence.DebounceMillis < 0 || c.RatePersistence.MaxRetries < 0 || c.RatePersistence.RetryDelay < 0 {
		return fmt.Errorf("rate persistence settings must not be negative")
	}
	if c.Session.IdleTimeoutMinutes < 0 || c.Session.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("invalid session expiry settings")
	}
	if c.RatePersistence.QueueSize <= 0 {
		return fmt.Errorf("RATE_SAVE_QUEUE_SIZE must be positive")
	}
	return nil
}

// CalculationSystem returns the parsed calculation unit system
func (c *Config) CalculationSystem() measurement.System {
	sys, _ := measurement.ParseSystem(c.Engine.CalculationSystem)
	return sys
}

// DisplaySystem returns the parsed default display unit system
func (c *Config) DisplaySystem() measurement.System {
	sys, _ := measurement.ParseSystem(c.Engine.DisplaySystem)
	return sys
}

// DebounceWindow returns the rate save debounce window
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.RatePersistence.DebounceMillis) * time.Millisecond
}

// SessionIdleTimeout returns how long an unused session is kept
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.Session.IdleTimeoutMinutes) * time.Minute
}

// SessionSweepInterval returns how often idle sessions are swept
func (c *Config) SessionSweepInterval() time.Duration {
	return time.Duration(c.Session.SweepIntervalSeconds) * time.Second
}

// LogLevel returns the parsed log level
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
