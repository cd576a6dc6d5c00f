package observability

import (
	"io"
	"log/slog"
	"os"
)

type LogConfig struct {
	Env     string
	Service string
	// Level overrides the env default (debug in dev, info elsewhere).
	Level string
}

func NewLogger(cfg LogConfig) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg LogConfig) *slog.Logger {
	level := slog.LevelInfo
	if cfg.Env == "dev" {
		level = slog.LevelDebug
	}
	if cfg.Level != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(cfg.Level)); err == nil {
			level = l
		}
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	log := slog.New(NewTraceHandler(handler))
	if cfg.Service != "" {
		log = log.With("service", cfg.Service)
	}
	return log
}
