package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/turntimer/go/internal/game"
	"github.com/mcdev12/turntimer/go/internal/models"
	"github.com/mcdev12/turntimer/go/internal/turnclock"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StoreValkey   = "valkey"
	StorePostgres = "postgres"
)

type Config struct {
	Timer struct {
		Presets          []int    `yaml:"presets"`
		StrictPresets    bool     `yaml:"strict_presets"`
		DefaultDuration  int      `yaml:"default_duration"`
		CooldownMs       int      `yaml:"cooldown_ms"`
		LowTimeThreshold int      `yaml:"low_time_threshold"`
		Players          []string `yaml:"players"`
	} `yaml:"timer"`

	Store struct {
		Backend string `yaml:"backend"`
		Key     string `yaml:"key"`
	} `yaml:"store"`

	Events struct {
		NATSEnabled       bool     `yaml:"nats_enabled"`
		NATSURL           string   `yaml:"nats_url"`
		SubjectPrefix     string   `yaml:"subject_prefix"`
		Skip              []string `yaml:"skip"`
		TickSampleSeconds int      `yaml:"tick_sample_seconds"` // 0 publishes every tick
	} `yaml:"events"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// defaultConfig is used when no config file exists
func defaultConfig() *Config {
	var config Config
	config.Timer.Presets = []int{25, 30, 35, 40, 45, 60}
	config.Timer.DefaultDuration = turnclock.DefaultTurnDuration
	config.Timer.CooldownMs = int(turnclock.DefaultCooldown / time.Millisecond)
	config.Timer.LowTimeThreshold = turnclock.DefaultLowTimeThreshold
	config.Store.Backend = StoreMemory
	config.Events.SubjectPrefix = "turntimer.events"
	config.Events.TickSampleSeconds = 10
	config.Server.Port = "8080"
	return &config
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	applyEnvOverrides(config)

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func applyEnvOverrides(config *Config) {
	config.Timer.DefaultDuration = getEnvAsInt("TURN_DURATION", config.Timer.DefaultDuration)
	config.Store.Backend = getEnv("STORE_BACKEND", config.Store.Backend)
	config.Events.NATSURL = getEnv("NATS_URL", config.Events.NATSURL)
	if getEnv("NATS_ENABLED", "") == "true" {
		config.Events.NATSEnabled = true
	}
	config.Server.Port = getEnv("PORT", config.Server.Port)
}

func (c *Config) validate() error {
	if c.Timer.DefaultDuration <= 0 {
		return fmt.Errorf("timer.default_duration must be positive, got %d", c.Timer.DefaultDuration)
	}
	if c.Events.TickSampleSeconds < 0 {
		return fmt.Errorf("events.tick_sample_seconds must not be negative, got %d", c.Events.TickSampleSeconds)
	}
	if c.Timer.CooldownMs < 0 {
		return fmt.Errorf("timer.cooldown_ms must not be negative, got %d", c.Timer.CooldownMs)
	}
	for _, p := range c.Timer.Presets {
		if p <= 0 {
			return fmt.Errorf("timer.presets must be positive, got %d", p)
		}
	}
	if n := len(c.Timer.Players); n != 0 && n < models.MinPlayers {
		return fmt.Errorf("timer.players needs at least %d names, got %d", models.MinPlayers, n)
	}
	switch strings.ToLower(c.Store.Backend) {
	case StoreMemory, StoreValkey, StorePostgres:
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	return nil
}

// clockConfig builds the clock setup from the timer section
func (c *Config) clockConfig() turnclock.Config {
	cfg := turnclock.DefaultConfig()
	cfg.TurnDuration = c.Timer.DefaultDuration
	cfg.Cooldown = time.Duration(c.Timer.CooldownMs) * time.Millisecond
	if c.Timer.LowTimeThreshold > 0 {
		cfg.LowTimeThreshold = c.Timer.LowTimeThreshold
	}
	if len(c.Timer.Players) > 0 {
		cfg.Players = make([]models.Player, 0, len(c.Timer.Players))
		for i, name := range c.Timer.Players {
			cfg.Players = append(cfg.Players, models.Player{ID: i + 1, Name: name})
		}
	}
	return cfg
}

func (c *Config) gameSettings() game.Settings {
	return game.Settings{
		Presets:       append([]int(nil), c.Timer.Presets...),
		StrictPresets: c.Timer.StrictPresets,
	}
}
