// Package config loads the eventd YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "EVENTD_CONFIG"

// ErrEmptyConfig is returned by Load for a blank file.
var ErrEmptyConfig = errors.New("config file is empty")

type Config struct {
	Log     LogConfig     `yaml:"log"`
	Device  DeviceConfig  `yaml:"device"`
	HTTP    HTTPConfig    `yaml:"http"`
	Tracker TrackerConfig `yaml:"tracker"`
	NATS    NATSConfig    `yaml:"nats"`
	Redis   RedisConfig   `yaml:"redis"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Capture CaptureConfig `yaml:"capture"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DeviceConfig names the device whose events this instance handles.
type DeviceConfig struct {
	Name string `yaml:"name"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type TrackerConfig struct {
	MaxEvents int `yaml:"max_events"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Retries int    `yaml:"retries"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type CaptureConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Dir          string        `yaml:"dir"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

func DefaultConfig() *Config {
	return &Config{
		Log:     LogConfig{Level: "info", Format: "json"},
		Device:  DeviceConfig{Name: "default"},
		HTTP:    HTTPConfig{Addr: ":8090", MaxBodyBytes: 1 << 20, ShutdownTimeout: 5 * time.Second},
		Tracker: TrackerConfig{MaxEvents: 1024},
		NATS:    NATSConfig{Enabled: false, URL: "nats://localhost:4222", Subject: "vapix.events", Retries: 3},
		Redis:   RedisConfig{Enabled: false, Addr: "localhost:6379", Prefix: "vapix:events"},
		MQTT:    MQTTConfig{Enabled: false, Broker: "tcp://localhost:1883", ClientID: "vapix-eventd", TopicPrefix: "vapix", QoS: 1},
		Kafka:   KafkaConfig{Enabled: false, Topic: "vapix-events"},
		Capture: CaptureConfig{Enabled: false, PollInterval: 2 * time.Second},
	}
}

// Load reads path on top of DefaultConfig and validates the result.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyConfig)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the EVENTD_CONFIG value when set, flagValue otherwise.
func Path(flagValue string) string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return flagValue
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.HTTP.MaxBodyBytes <= 0 {
		cfg.HTTP.MaxBodyBytes = def.HTTP.MaxBodyBytes
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = def.HTTP.ShutdownTimeout
	}
	if cfg.Tracker.MaxEvents <= 0 {
		cfg.Tracker.MaxEvents = def.Tracker.MaxEvents
	}
	if cfg.NATS.Retries <= 0 {
		cfg.NATS.Retries = def.NATS.Retries
	}
	if cfg.Capture.PollInterval <= 0 {
		cfg.Capture.PollInterval = def.Capture.PollInterval
	}
	if cfg.Device.Name == "" {
		cfg.Device.Name = def.Device.Name
	}
}

func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr required")
	}
	if c.NATS.Enabled && (c.NATS.URL == "" || c.NATS.Subject == "") {
		return errors.New("nats requires url and subject when enabled")
	}
	if c.Redis.Enabled && (c.Redis.Addr == "" || c.Redis.Prefix == "") {
		return errors.New("redis requires addr and prefix when enabled")
	}
	if c.MQTT.Enabled && (c.MQTT.Broker == "" || c.MQTT.TopicPrefix == "") {
		return errors.New("mqtt requires broker and topic_prefix when enabled")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("kafka requires brokers and topic when enabled")
	}
	if c.Capture.Enabled && c.Capture.Dir == "" {
		return errors.New("capture.dir required when capture.enabled is true")
	}
	if strings.ContainsAny(c.Device.Name, ". *>") {
		return fmt.Errorf("device.name %q must not contain '.', '*', '>' or spaces", c.Device.Name)
	}
	return nil
}
