// Package config loads the engine configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the whole engine configuration.
type Config struct {
	Version            int   `yaml:"version"`
	LogicPeriodMS      int   `yaml:"logic_period_ms"`
	MaxTicksPerAdvance int   `yaml:"max_ticks_per_advance"`
	RNGSeed            int64 `yaml:"rng_seed"`
	AutosaveSlot       int   `yaml:"autosave_slot"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Storage struct {
		Backend     string        `yaml:"backend"` // file, redis, postgres
		Dir         string        `yaml:"dir"`
		RedisURL    string        `yaml:"redis_url"`
		PostgresDSN string        `yaml:"postgres_dsn"`
		TTL         time.Duration `yaml:"ttl"`
	} `yaml:"storage"`

	Profiler struct {
		Addr   string `yaml:"addr"`
		Buffer int    `yaml:"buffer"`
	} `yaml:"profiler"`

	MQTT struct {
		Broker   string `yaml:"broker"`
		Topic    string `yaml:"topic"`
		ClientID string `yaml:"client_id"`
	} `yaml:"mqtt"`
}

// Default returns a configuration that runs without a file.
func Default() *Config {
	c := &Config{
		Version:            1,
		LogicPeriodMS:      25,
		MaxTicksPerAdvance: 8,
		RNGSeed:            1,
		AutosaveSlot:       -1,
	}
	c.Log.Level = "info"
	c.Log.Format = "text"
	c.Storage.Backend = "file"
	c.Storage.Dir = "saves"
	c.Profiler.Buffer = 256
	c.MQTT.Topic = "qdcore/input"
	c.MQTT.ClientID = "qdcore"
	return c
}

// LogicPeriod is the fixed tick length.
func (c *Config) LogicPeriod() time.Duration {
	return time.Duration(c.LogicPeriodMS) * time.Millisecond
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d", cfg.Version)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if c.LogicPeriodMS <= 0 {
		return fmt.Errorf("logic_period_ms must be positive, got %d", c.LogicPeriodMS)
	}
	if c.MaxTicksPerAdvance < 0 {
		return fmt.Errorf("max_ticks_per_advance must not be negative, got %d", c.MaxTicksPerAdvance)
	}
	switch c.Storage.Backend {
	case "file", "redis", "postgres":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// ApplyEnv maps QDCORE_* variables over the configuration. Secrets may be
// given through the *_FILE convention.
func (c *Config) ApplyEnv() error {
	setInt := func(name string, dst *int) error {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
		return nil
	}
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	if err := setInt("QDCORE_LOGIC_PERIOD_MS", &c.LogicPeriodMS); err != nil {
		return err
	}
	if err := setInt("QDCORE_AUTOSAVE_SLOT", &c.AutosaveSlot); err != nil {
		return err
	}
	if v := os.Getenv("QDCORE_RNG_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("QDCORE_RNG_SEED: %w", err)
		}
		c.RNGSeed = n
	}
	setString("QDCORE_LOG_LEVEL", &c.Log.Level)
	setString("QDCORE_LOG_FORMAT", &c.Log.Format)
	setString("QDCORE_STORAGE_BACKEND", &c.Storage.Backend)
	setString("QDCORE_STORAGE_DIR", &c.Storage.Dir)
	setString("QDCORE_PROFILER_ADDR", &c.Profiler.Addr)
	setString("QDCORE_MQTT_BROKER", &c.MQTT.Broker)
	setString("QDCORE_MQTT_TOPIC", &c.MQTT.Topic)

	for name, dst := range map[string]*string{
		"QDCORE_REDIS_URL":    &c.Storage.RedisURL,
		"QDCORE_POSTGRES_DSN": &c.Storage.PostgresDSN,
	} {
		v, err := ResolveSecret(name)
		if err != nil {
			return err
		}
		if v != "" {
			*dst = v
		}
	}
	return c.Validate()
}

// ResolveSecret reads a secret value using the *_FILE convention.
// If envName+"_FILE" is set, the secret is read from that file. Otherwise
// the value of envName is returned, or "" when neither is set.
func ResolveSecret(envName string) (string, error) {
	fileEnv := envName + "_FILE"
	if filePath := os.Getenv(fileEnv); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read secret from %s=%s: %w", fileEnv, filePath, err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	return os.Getenv(envName), nil
}
