// Package config defines all configuration for the AIVERSE daemon.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// every key overridable via AIVERSE_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	World    WorldConfig    `mapstructure:"world"`
	Bots     BotsConfig     `mapstructure:"bots"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Events   EventsConfig   `mapstructure:"events"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the host:port the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WorldConfig tunes the simulated economy.
//
//   - TickInterval: wall-clock pace of one world tick.
//   - TicksPerDay: ticks per simulated day; the daily cycle (income,
//     dividends, bankruptcy sweep) runs when the counter wraps.
//   - DailyIncome: per-agent grant each day, also the starting balance.
//   - DividendRate: share of company revenue paid out daily.
//   - CreationCost: charge to found a company.
//   - TotalShares: share supply every company is born with.
type WorldConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	TicksPerDay  int64         `mapstructure:"ticks_per_day"`
	DailyIncome  float64       `mapstructure:"daily_income"`
	DividendRate float64       `mapstructure:"dividend_rate"`
	CreationCost float64       `mapstructure:"creation_cost"`
	TotalShares  float64       `mapstructure:"total_shares"`
}

// BotsConfig controls the built-in trading bots.
type BotsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// JournalConfig sets where trades and events are journaled (sqlite).
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// SnapshotConfig sets where and how often world snapshots are written.
type SnapshotConfig struct {
	Path     string        `mapstructure:"path"`
	Interval time.Duration `mapstructure:"interval"`
}

// EventsConfig sizes the broadcast queue between the world and its
// subscribers. When the queue is full the newest events are dropped.
type EventsConfig struct {
	Buffer int `mapstructure:"buffer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)

	v.SetDefault("world.tick_interval", time.Second)
	v.SetDefault("world.ticks_per_day", 1440)
	v.SetDefault("world.daily_income", 1000.0)
	v.SetDefault("world.dividend_rate", 0.10)
	v.SetDefault("world.creation_cost", 10000.0)
	v.SetDefault("world.total_shares", 1000000.0)

	v.SetDefault("bots.enabled", true)
	v.SetDefault("bots.interval", 5*time.Second)

	v.SetDefault("journal.path", "data/aiverse.db")

	v.SetDefault("snapshot.path", "data/snapshot.json")
	v.SetDefault("snapshot.interval", time.Minute)

	v.SetDefault("events.buffer", 256)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads config from a YAML file with env var overrides. An empty
// path runs on defaults and environment alone.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AIVERSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535")
	}
	if c.World.TickInterval <= 0 {
		return fmt.Errorf("world.tick_interval must be > 0")
	}
	if c.World.TicksPerDay <= 0 {
		return fmt.Errorf("world.ticks_per_day must be > 0")
	}
	if c.World.DailyIncome < 0 {
		return fmt.Errorf("world.daily_income must be >= 0")
	}
	if c.World.DividendRate < 0 || c.World.DividendRate > 1 {
		return fmt.Errorf("world.dividend_rate must be in 0..1")
	}
	if c.World.CreationCost < 0 {
		return fmt.Errorf("world.creation_cost must be >= 0")
	}
	if c.World.TotalShares <= 0 {
		return fmt.Errorf("world.total_shares must be > 0")
	}
	if c.Bots.Enabled && c.Bots.Interval <= 0 {
		return fmt.Errorf("bots.interval must be > 0")
	}
	if c.Snapshot.Interval <= 0 {
		return fmt.Errorf("snapshot.interval must be > 0")
	}
	if c.Events.Buffer <= 0 {
		return fmt.Errorf("events.buffer must be > 0")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be one of: text, json")
	}
	return nil
}
