package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/audi/fep-participant-sub006/internal/buffer"
	"github.com/audi/fep-participant-sub006/internal/sample"
)

// Validate checks the configuration and fills in defaults
func Validate(cfg *Config) error {
	if cfg.Signal.Name == "" {
		return fmt.Errorf("signal.name is required")
	}
	if cfg.Signal.Handle != "" {
		if _, err := uuid.Parse(cfg.Signal.Handle); err != nil {
			return fmt.Errorf("signal.handle must be a UUID: %w", err)
		}
	}

	if cfg.Buffer.MaxEntries <= 0 {
		return fmt.Errorf("buffer.max_entries must be > 0")
	}
	if cfg.Buffer.SampleSize < 0 {
		return fmt.Errorf("buffer.sample_size must be >= 0")
	}
	if cfg.Buffer.DeliveryStrategy == "" {
		cfg.Buffer.DeliveryStrategy = buffer.DeliverIncomplete.String()
	}
	if _, err := ParseStrategy(cfg.Buffer.DeliveryStrategy); err != nil {
		return err
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if _, err := ParseLevel(cfg.Logging.Level); err != nil {
		return err
	}
	switch cfg.Logging.Format {
	case "":
		cfg.Logging.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got '%s'", cfg.Logging.Format)
	}

	if m := cfg.Incidents.MQTT; m != nil {
		if m.Broker == "" {
			return fmt.Errorf("incidents.mqtt.broker is required")
		}
		if m.Topic == "" {
			m.Topic = fmt.Sprintf("fep/incidents/%s", cfg.Signal.Name)
		}
		if m.ClientID == "" {
			m.ClientID = fmt.Sprintf("ddb-%s", strings.ToLower(cfg.Signal.Name))
		}
		if m.QoS > 2 {
			return fmt.Errorf("incidents.mqtt.qos must be 0, 1 or 2, got %d", m.QoS)
		}
	}

	if cfg.Sender.PeriodMS <= 0 {
		cfg.Sender.PeriodMS = 100
	}
	if cfg.Sender.SamplesPerFrame <= 0 {
		cfg.Sender.SamplesPerFrame = cfg.Buffer.MaxEntries
	}
	if cfg.Sender.SamplesPerFrame > cfg.Buffer.MaxEntries {
		return fmt.Errorf("sender.samples_per_frame (%d) exceeds buffer.max_entries (%d)",
			cfg.Sender.SamplesPerFrame, cfg.Buffer.MaxEntries)
	}
	if cfg.Sender.Frames < 0 {
		return fmt.Errorf("sender.frames must be >= 0")
	}

	return nil
}

// SignalHandle returns the configured handle, or the one derived from the signal name
func (cfg *Config) SignalHandle() sample.Handle {
	if cfg.Signal.Handle != "" {
		if h, err := uuid.Parse(cfg.Signal.Handle); err == nil {
			return h
		}
	}
	return sample.HandleForSignal(cfg.Signal.Name)
}

// ParseStrategy decodes a delivery strategy name
func ParseStrategy(s string) (buffer.DeliveryStrategy, error) {
	switch strings.ToLower(s) {
	case "deliver_incomplete":
		return buffer.DeliverIncomplete, nil
	case "drop_incomplete":
		return buffer.DropIncomplete, nil
	default:
		return 0, fmt.Errorf("buffer.delivery_strategy must be 'deliver_incomplete' or 'drop_incomplete', got '%s'", s)
	}
}

// ParseLevel decodes a log level name
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
