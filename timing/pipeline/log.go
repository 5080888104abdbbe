package pipeline

import (
	"context"
	"log/slog"
)

// LevelTrace is the log level of per-cycle stage events. It sits below
// Debug so stage events stay hidden unless asked for.
const LevelTrace slog.Level = slog.LevelDebug - 4

func (p *Pipeline) logEvent(msg string, args ...any) {
	if !p.tracing {
		return
	}

	p.logger.Log(context.Background(), LevelTrace, msg,
		append([]any{"cycle", p.cycle}, args...)...)
}
