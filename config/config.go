package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds the application settings, loaded from the environment.
type Config struct {
	TelegramBotToken  string        `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	DatabasePath      string        `envconfig:"DATABASE_PATH" default:"./products.db"`
	CheckInterval     time.Duration `envconfig:"CHECK_INTERVAL" default:"10m"`
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"12s"`
	NavigationTimeout time.Duration `envconfig:"NAVIGATION_TIMEOUT" default:"20s"`
	RenderSettle      time.Duration `envconfig:"RENDER_SETTLE" default:"1500ms"`
	UserAgent         string        `envconfig:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64)"`
	Debug             bool          `envconfig:"DEBUG" default:"false"`
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	return &cfg, nil
}
