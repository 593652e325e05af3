package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr         string `yaml:"addr"`
		Password     string `yaml:"password"`
		DB           int    `yaml:"db"`
		KeepProgress int64  `yaml:"keepProgress"` // summaries retained in the progress list
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		ContentTTL      string  `yaml:"contentTtl"`
		CloseThreshold  float64 `yaml:"closeThreshold"`
		DistractorCount int     `yaml:"distractorCount"`
		// Per-question countdown by difficulty tag; the default applies to
		// untagged sessions. Empty strings disable the countdown.
		Countdown        map[string]string `yaml:"countdown"`
		DefaultCountdown string            `yaml:"defaultCountdown"`
		AdvanceCorrect   string            `yaml:"advanceCorrect"`
		AdvanceWrong     string            `yaml:"advanceWrong"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Countdowns converts the per-difficulty countdown strings to durations.
func (c Config) Countdowns() map[string]time.Duration {
	out := make(map[string]time.Duration, len(c.Quiz.Countdown))
	for tag, raw := range c.Quiz.Countdown {
		out[tag] = TTLDuration(raw, 0)
	}
	return out
}
