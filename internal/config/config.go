package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	MQTT            MQTTConfig        `yaml:"mqtt"`
	Database        DatabaseConfig    `yaml:"database"`
	Log             LogConfig         `yaml:"log"`
	EventBus        EventBusConfig    `yaml:"eventbus"`
	Poller          PollerConfig      `yaml:"poller"`
	Scenes          []SceneConfig     `yaml:"scenes"`
	Dimmers         []DimmerConfig    `yaml:"dimmers"`
	RelayPairs      []RelayPairConfig `yaml:"relay_pairs"`
	Script          string            `yaml:"script"`           // optional Lua automation script
	ShutdownTimeout Duration          `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// MQTTConfig contains broker connection settings
type MQTTConfig struct {
	Broker         string   `yaml:"broker"`
	ClientID       string   `yaml:"client_id"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	TopicPrefix    string   `yaml:"topic_prefix"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
	WriteTimeout   Duration `yaml:"write_timeout"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"json"`
}

// GetLevel returns the configured level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 4)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 100)
}

// GetWorkers returns worker count with default
func (c *EventBusConfig) GetWorkers() int {
	if c.Workers <= 0 {
		return 4
	}
	return c.Workers
}

// GetQueueSize returns queue size with default
func (c *EventBusConfig) GetQueueSize() int {
	if c.QueueSize <= 0 {
		return 100
	}
	return c.QueueSize
}

// PollerConfig contains poll loop settings
type PollerConfig struct {
	Interval     Duration `yaml:"interval"`
	RateLimitRPS float64  `yaml:"rate_limit_rps"` // cap on device writes per second
}

// SceneConfig describes one scene controller
type SceneConfig struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	Entities     []SceneEntity `yaml:"entities"`
	Tolerance    float64       `yaml:"tolerance"`     // comparator tolerance, 0 = default
	RecheckDelay Duration      `yaml:"recheck_delay"` // off-window after manual deactivate
}

// SceneEntity is one tracked entity within a scene
type SceneEntity struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
}

// DimmerConfig describes one variable-linked dimmer
type DimmerConfig struct {
	ID       string `yaml:"id"`
	Device   string `yaml:"device"`
	Variable string `yaml:"variable"`
	Min      string `yaml:"min"` // variable scale bounds, strings so "0.0" keeps its decimals
	Max      string `yaml:"max"`
}

// RelayPairConfig describes one two-relay dimmer or fan
type RelayPairConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Mode        string   `yaml:"mode"` // "dimmer" or "fan"
	Relay1      string   `yaml:"relay1"`
	Relay2      string   `yaml:"relay2"`
	SettleDelay Duration `yaml:"settle_delay"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./lighttools.sqlite"
	}

	// MQTT defaults
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://localhost:1883"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "lighttools"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "lighttools"
	}
	if cfg.MQTT.ConnectTimeout == 0 {
		cfg.MQTT.ConnectTimeout = Duration(10 * time.Second)
	}
	if cfg.MQTT.WriteTimeout == 0 {
		cfg.MQTT.WriteTimeout = Duration(5 * time.Second)
	}

	// Poller defaults
	if cfg.Poller.Interval == 0 {
		cfg.Poller.Interval = Duration(1 * time.Second)
	}
	if cfg.Poller.RateLimitRPS == 0 {
		cfg.Poller.RateLimitRPS = 10.0 // 10 device writes per second
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate rejects configurations that would misbehave at runtime rather
// than failing them later.
func (c *Config) validate() error {
	sceneIDs := make(map[string]bool)
	for _, scene := range c.Scenes {
		if scene.ID == "" {
			return fmt.Errorf("scene with empty id")
		}
		if sceneIDs[scene.ID] {
			return fmt.Errorf("duplicate scene id %q", scene.ID)
		}
		sceneIDs[scene.ID] = true
		if len(scene.Entities) == 0 {
			return fmt.Errorf("scene %q has no entities", scene.ID)
		}
	}

	for _, dimmer := range c.Dimmers {
		if dimmer.Device == "" || dimmer.Variable == "" {
			return fmt.Errorf("dimmer %q needs both device and variable", dimmer.ID)
		}
	}

	for _, pair := range c.RelayPairs {
		if pair.Mode != "" && pair.Mode != "dimmer" && pair.Mode != "fan" {
			return fmt.Errorf("relay pair %q has unknown mode %q", pair.ID, pair.Mode)
		}
		if pair.Relay1 == "" || pair.Relay2 == "" {
			return fmt.Errorf("relay pair %q needs both relays", pair.ID)
		}
	}

	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
