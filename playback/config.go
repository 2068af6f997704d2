package playback

import (
	"fmt"
	"time"
)

// Config contains all playback configuration options.
type Config struct {
	// Engine settings
	Engine string  `yaml:"engine" env:"READALOUD_ENGINE" envDefault:"piper"`
	Voice  string  `yaml:"voice" env:"READALOUD_VOICE"`
	Speed  float64 `yaml:"speed" env:"READALOUD_SPEED" envDefault:"1.0"`

	// Piper settings
	PiperBinary string `yaml:"piper_binary" env:"READALOUD_PIPER_BINARY" envDefault:"piper"`
	PiperModel  string `yaml:"piper_model" env:"READALOUD_PIPER_MODEL"`

	// Highlight pacing
	LeadTime     time.Duration `yaml:"lead_time" env:"READALOUD_LEAD_TIME" envDefault:"30ms"`
	PollInterval time.Duration `yaml:"poll_interval" env:"READALOUD_POLL_INTERVAL" envDefault:"150ms"`
	ScrollEvery  int           `yaml:"scroll_every" env:"READALOUD_SCROLL_EVERY" envDefault:"5"`

	// Audio cache
	CacheEnabled bool   `yaml:"cache_enabled" env:"READALOUD_CACHE_ENABLED" envDefault:"true"`
	CacheDir     string `yaml:"cache_dir" env:"READALOUD_CACHE_DIR"`

	// Visual settings
	HighlightColor string `yaml:"highlight_color" env:"READALOUD_HIGHLIGHT_COLOR" envDefault:"212"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:         "piper",
		Speed:          1.0,
		PiperBinary:    "piper",
		LeadTime:       30 * time.Millisecond,
		PollInterval:   150 * time.Millisecond,
		ScrollEvery:    5,
		CacheEnabled:   true,
		HighlightColor: "212",
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	switch c.Engine {
	case "piper", "mock":
	default:
		return fmt.Errorf("unknown engine %q (want piper or mock)", c.Engine)
	}
	if c.Speed < 0.25 || c.Speed > 4.0 {
		return fmt.Errorf("speed %.2f out of range [0.25, 4.0]", c.Speed)
	}
	if c.LeadTime < 0 || c.LeadTime > time.Second {
		return fmt.Errorf("lead time %v out of range [0, 1s]", c.LeadTime)
	}
	if c.PollInterval < 10*time.Millisecond || c.PollInterval > 5*time.Second {
		return fmt.Errorf("poll interval %v out of range [10ms, 5s]", c.PollInterval)
	}
	if c.ScrollEvery < 1 {
		return fmt.Errorf("scroll every %d must be at least 1", c.ScrollEvery)
	}
	return nil
}

// SchedulerConfig derives the scheduler's pacing from the config.
func (c *Config) SchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Lead:         c.LeadTime,
		PollInterval: c.PollInterval,
		ScrollEvery:  c.ScrollEvery,
	}
}
