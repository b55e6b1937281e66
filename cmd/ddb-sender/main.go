package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	ddb "github.com/audi/fep-participant-sub006"
	"github.com/audi/fep-participant-sub006/internal/config"
	"github.com/audi/fep-participant-sub006/internal/incident"
	"github.com/audi/fep-participant-sub006/internal/record"
)

const (
	version           = "v0.1.0"
	defaultConfigPath = "config/ddb-sender.yaml"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	frames := flag.Int("frames", -1, "Frames to send, overrides sender.frames (0 = until interrupted)")
	statsInterval := flag.Duration("stats-interval", 5*time.Second, "Statistics reporting interval")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *frames >= 0 {
		cfg.Sender.Frames = *frames
	}

	logger := newLogger(cfg.Logging, *debug)
	slog.SetDefault(logger)

	printBanner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("shutdown signal received, stopping gracefully", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := run(ctx, cfg, *statsInterval, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sender failed", "error", err)
		os.Exit(1)
	}

	logger.Info("sender stopped")
}

func newLogger(cfg config.LoggingConfig, debug bool) *slog.Logger {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg *config.Config, statsInterval time.Duration, logger *slog.Logger) error {
	// 1. Incident sinks: always the log, optionally the broker
	sinks := []incident.Sink{incident.NewLogSink(logger)}
	if m := cfg.Incidents.MQTT; m != nil {
		mqttSink := incident.NewMQTTSink(incident.MQTTConfig{
			Broker:   m.Broker,
			Topic:    m.Topic,
			ClientID: m.ClientID,
			QoS:      m.QoS,
		}, logger)
		if err := mqttSink.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect incident sink: %w", err)
		}
		defer mqttSink.Disconnect()
		sinks = append(sinks, mqttSink)
	}

	// 2. Buffer
	buf := ddb.New(ddb.WithLogger(logger), ddb.WithIncidentSink(incident.Multi(sinks...)))
	defer buf.Close()

	strategy, err := config.ParseStrategy(cfg.Buffer.DeliveryStrategy)
	if err != nil {
		return err
	}
	handle := cfg.SignalHandle()
	if err := buf.CreateEntry(handle, cfg.Buffer.MaxEntries,
		ddb.WithSampleSize(cfg.Buffer.SampleSize),
		ddb.WithDeliveryStrategy(strategy),
	); err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	// 3. Listeners
	stats := newSyncStats()
	if err := buf.RegisterSyncListener(stats); err != nil {
		return err
	}

	if cfg.Recording.Path != "" {
		stop, err := startRecording(buf, cfg.Recording.Path, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	// 4. Statistics reporter
	go reportStats(ctx, statsInterval, buf, stats, logger)

	// 5. Cyclic sender (blocks until done or cancelled)
	sender, err := newSender(buf, handle, cfg.Sender, cfg.Buffer.SampleSize, logger)
	if err != nil {
		return err
	}
	err = sender.Run(ctx)

	waitDrained(buf, time.Duration(cfg.Sender.PeriodMS)*time.Millisecond*2)
	printFinalStats(buf.Stats(), stats.Snapshot())

	return err
}

// startRecording registers a frame recorder writing to path. The returned stop
// function detaches the recorder before it closes the file.
func startRecording(buf ddb.Buffer, path string, logger *slog.Logger) (stop func(), err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	rec := record.NewRecorder(f)
	if err := buf.RegisterSyncListener(rec); err != nil {
		f.Close()
		return nil, err
	}
	logger.Info("frame recording enabled", "path", path)

	return func() {
		// waits for a delivery in progress, so no write can follow the Close
		buf.UnregisterSyncListener(rec)
		if err := f.Close(); err != nil {
			logger.Warn("failed to close recording", "path", path, "error", err)
		}
		logger.Info("recording closed", "path", path, "records", rec.Written())
	}, nil
}

// waitDrained waits until every rotation was either dispatched or superseded.
func waitDrained(buf ddb.Buffer, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		st := buf.Stats()
		if st.Dispatched+st.DroppedFrames >= st.Rotations {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func printBanner(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║    DDB Sender - Cyclic Triple-Buffer Stimulus                 ║")
	fmt.Printf("║                    Version %-34s ║\n", version)
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  Signal:            %s (%s)\n", cfg.Signal.Name, cfg.SignalHandle())
	fmt.Printf("  Max Entries:       %d\n", cfg.Buffer.MaxEntries)
	if cfg.Buffer.SampleSize > 0 {
		fmt.Printf("  Sample Size:       %d bytes (fixed)\n", cfg.Buffer.SampleSize)
	} else {
		fmt.Printf("  Sample Size:       dynamic\n")
	}
	fmt.Printf("  Strategy:          %s\n", cfg.Buffer.DeliveryStrategy)
	fmt.Printf("  Period:            %d ms\n", cfg.Sender.PeriodMS)
	fmt.Printf("  Samples/Frame:     %d\n", cfg.Sender.SamplesPerFrame)
	if cfg.Sender.Frames > 0 {
		fmt.Printf("  Frames:            %d\n", cfg.Sender.Frames)
	} else {
		fmt.Printf("  Frames:            until interrupted\n")
	}
	if cfg.Incidents.MQTT != nil {
		fmt.Printf("  Incidents:         log + mqtt://%s/%s\n", cfg.Incidents.MQTT.Broker, cfg.Incidents.MQTT.Topic)
	} else {
		fmt.Printf("  Incidents:         log\n")
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop gracefully")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println()
}
