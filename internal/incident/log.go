package incident

import (
	"context"
	"log/slog"
)

// LogSink writes incidents to a structured logger. Info maps to slog.LevelInfo,
// Warning to slog.LevelWarn, both critical severities to slog.LevelError.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging through logger, or slog.Default() if nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(in Incident) {
	s.logger.Log(context.Background(), level(in.Severity), "incident: "+in.Description,
		"incident_id", in.ID.String(),
		"code", int(in.Code),
		"code_name", in.Code.String(),
		"severity", in.Severity.String(),
		"source", in.Source,
	)
}

func level(s Severity) slog.Level {
	switch s {
	case Info:
		return slog.LevelInfo
	case Warning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
