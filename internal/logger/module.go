package logger

import (
	"log/slog"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/polkiloo/vinylshop/internal/config"
)

// Module wires slog logger for dependency injection and routes fx events through it.
var Module = fx.Options(
	fx.Provide(newFromConfig),
	fx.WithLogger(NewEventLogger),
)

func newFromConfig(cfg *config.Config) *slog.Logger {
	return New(cfg.LogLevel)
}

// NewEventLogger adapts slog for fx container events.
func NewEventLogger(log *slog.Logger) fxevent.Logger {
	return &fxevent.SlogLogger{Logger: log.With(slog.String("component", "fx"))}
}
