package playback

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// LoadConfigFromViper loads playback configuration from Viper, layered over
// the defaults.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("readaloud.engine") {
		cfg.Engine = viper.GetString("readaloud.engine")
	}
	if viper.IsSet("readaloud.voice") {
		cfg.Voice = viper.GetString("readaloud.voice")
	}
	if viper.IsSet("readaloud.speed") {
		cfg.Speed = viper.GetFloat64("readaloud.speed")
	}

	if viper.IsSet("readaloud.piper.binary") {
		cfg.PiperBinary = viper.GetString("readaloud.piper.binary")
	}
	if viper.IsSet("readaloud.piper.model") {
		cfg.PiperModel = viper.GetString("readaloud.piper.model")
	}

	if viper.IsSet("readaloud.lead_time") {
		if d, err := time.ParseDuration(viper.GetString("readaloud.lead_time")); err == nil {
			cfg.LeadTime = d
		}
	}
	if viper.IsSet("readaloud.poll_interval") {
		if d, err := time.ParseDuration(viper.GetString("readaloud.poll_interval")); err == nil {
			cfg.PollInterval = d
		}
	}
	if viper.IsSet("readaloud.scroll_every") {
		cfg.ScrollEvery = viper.GetInt("readaloud.scroll_every")
	}

	if viper.IsSet("readaloud.cache.enabled") {
		cfg.CacheEnabled = viper.GetBool("readaloud.cache.enabled")
	}
	if viper.IsSet("readaloud.cache.dir") {
		cfg.CacheDir = viper.GetString("readaloud.cache.dir")
	}

	if viper.IsSet("readaloud.highlight_color") {
		cfg.HighlightColor = viper.GetString("readaloud.highlight_color")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid playback configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides layers READALOUD_* environment variables over cfg.
// The env defaults mirror DefaultConfig, so a field that still carries
// its default after parsing was not set in the environment and keeps
// the value cfg already has.
func ApplyEnvOverrides(cfg *Config) error {
	parsed, err := env.ParseAs[Config]()
	if err != nil {
		return fmt.Errorf("invalid environment configuration: %w", err)
	}

	defaults := DefaultConfig()
	if parsed.Engine != defaults.Engine {
		cfg.Engine = parsed.Engine
	}
	if parsed.Voice != defaults.Voice {
		cfg.Voice = parsed.Voice
	}
	if parsed.Speed != defaults.Speed {
		cfg.Speed = parsed.Speed
	}
	if parsed.PiperBinary != defaults.PiperBinary {
		cfg.PiperBinary = parsed.PiperBinary
	}
	if parsed.PiperModel != defaults.PiperModel {
		cfg.PiperModel = parsed.PiperModel
	}
	if parsed.LeadTime != defaults.LeadTime {
		cfg.LeadTime = parsed.LeadTime
	}
	if parsed.PollInterval != defaults.PollInterval {
		cfg.PollInterval = parsed.PollInterval
	}
	if parsed.ScrollEvery != defaults.ScrollEvery {
		cfg.ScrollEvery = parsed.ScrollEvery
	}
	if parsed.CacheEnabled != defaults.CacheEnabled {
		cfg.CacheEnabled = parsed.CacheEnabled
	}
	if parsed.CacheDir != defaults.CacheDir {
		cfg.CacheDir = parsed.CacheDir
	}
	if parsed.HighlightColor != defaults.HighlightColor {
		cfg.HighlightColor = parsed.HighlightColor
	}
	return nil
}

// SetDefaults registers the default values in Viper so config files only
// need to state overrides.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("readaloud.engine", defaults.Engine)
	viper.SetDefault("readaloud.voice", defaults.Voice)
	viper.SetDefault("readaloud.speed", defaults.Speed)

	viper.SetDefault("readaloud.piper.binary", defaults.PiperBinary)
	viper.SetDefault("readaloud.piper.model", defaults.PiperModel)

	viper.SetDefault("readaloud.lead_time", defaults.LeadTime.String())
	viper.SetDefault("readaloud.poll_interval", defaults.PollInterval.String())
	viper.SetDefault("readaloud.scroll_every", defaults.ScrollEvery)

	viper.SetDefault("readaloud.cache.enabled", defaults.CacheEnabled)
	viper.SetDefault("readaloud.cache.dir", defaults.CacheDir)

	viper.SetDefault("readaloud.highlight_color", defaults.HighlightColor)
}
