package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete sender configuration
type Config struct {
	Signal    SignalConfig    `yaml:"signal"`
	Buffer    BufferConfig    `yaml:"buffer"`
	Logging   LoggingConfig   `yaml:"logging"`
	Incidents IncidentsConfig `yaml:"incidents"`
	Sender    SenderConfig    `yaml:"sender"`
	Recording RecordingConfig `yaml:"recording"`
}

// SignalConfig identifies the buffered signal
type SignalConfig struct {
	Name   string `yaml:"name"`
	Handle string `yaml:"handle"` // UUID; derived from name when empty
}

// BufferConfig contains triple-buffer settings
type BufferConfig struct {
	MaxEntries       int    `yaml:"max_entries"`       // slots per frame
	SampleSize       int    `yaml:"sample_size"`       // fixed payload bytes, 0 = dynamic
	DeliveryStrategy string `yaml:"delivery_strategy"` // deliver_incomplete, drop_incomplete
}

// LoggingConfig contains slog settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// IncidentsConfig contains incident forwarding settings
type IncidentsConfig struct {
	MQTT *MQTTConfig `yaml:"mqtt,omitempty"`
}

// MQTTConfig contains MQTT broker settings for incident publishing
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

// SenderConfig controls the cyclic stimulus
type SenderConfig struct {
	PeriodMS        int `yaml:"period_ms"`
	SamplesPerFrame int `yaml:"samples_per_frame"`
	Frames          int `yaml:"frames"` // 0 = until interrupted
}

// RecordingConfig enables frame capture
type RecordingConfig struct {
	Path string `yaml:"path"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
