package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"promo-quiz/internal/app"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Store struct {
		// memory, redis or postgres
		Backend   string `yaml:"backend"`
		MaxScores int    `yaml:"max_scores"`
	} `yaml:"store"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		Set string `yaml:"set"`
		Dir string `yaml:"dir"`
		TTL string `yaml:"ttl"`
	} `yaml:"questions"`
	Quiz struct {
		TimePerQuestion int    `yaml:"time_per_question"`
		Tick            string `yaml:"tick"`
		RevealDelay     string `yaml:"reveal_delay"`
	} `yaml:"quiz"`
	Roulette struct {
		Effects []app.Effect `yaml:"effects"`
		Frames  int          `yaml:"frames"`
	} `yaml:"roulette"`
	Raffle struct {
		Top    int `yaml:"top"`
		Frames int `yaml:"frames"`
	} `yaml:"raffle"`
	Export struct {
		Dir string `yaml:"dir"`
	} `yaml:"export"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used for missing fields.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Store.Backend = "memory"
	cfg.Redis.Prefix = "promo:"
	cfg.Questions.Set = "default"
	cfg.Questions.TTL = "10m"
	cfg.Quiz.TimePerQuestion = app.DefaultTimeBudget
	cfg.Quiz.Tick = "1s"
	cfg.Quiz.RevealDelay = "1s"
	cfg.Roulette.Frames = 20
	cfg.Raffle.Top = 3
	cfg.Raffle.Frames = 15
	cfg.Export.Dir = "."
	cfg.Log.Level = "info"
	cfg.Log.Format = "pretty"
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file is not
// an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
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
