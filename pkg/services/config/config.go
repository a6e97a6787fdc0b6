package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Retry struct {
	BaseDelay        time.Duration `mapstructure:"base_delay"`
	MaxDelay         time.Duration `mapstructure:"max_delay"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	JitterFraction   float64       `mapstructure:"jitter_fraction"`
	BreakerThreshold int           `mapstructure:"breaker_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

type Cache struct {
	Enabled  bool          `mapstructure:"enabled"`
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity uint64        `mapstructure:"capacity"`
}

type Config struct {
	Addr            string        `mapstructure:"addr"`
	AzureProfile    string        `mapstructure:"azure_profile"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	// GracePeriod is how far the overdue threshold shifts for assignments
	// created with the grace period enabled.
	GracePeriod time.Duration `mapstructure:"grace_period"`
	Retry       Retry         `mapstructure:"retry"`
	Cache       Cache         `mapstructure:"cache"`
}

// Load reads the service configuration, falling back to defaults when no
// file is given. Values may also come from the environment via viper's
// automatic binding (prefix BRIDGE, dots as underscores).
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", ":8080")
	v.SetDefault("azure_profile", "default")
	v.SetDefault("provider_timeout", "30s")
	v.SetDefault("grace_period", "168h")
	v.SetDefault("retry.base_delay", "1s")
	v.SetDefault("retry.max_delay", "60s")
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.jitter_fraction", 0.2)
	v.SetDefault("retry.breaker_threshold", 10)
	v.SetDefault("retry.cooldown", "5m")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.capacity", 128)

	v.SetEnvPrefix("BRIDGE")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
