package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Log writes every event to a zerolog logger. It never fails.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a log sink.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, e Event) error {
	l.logger.Info().
		Str("event_id", e.ID.String()).
		Str("queue", e.Queue).
		Int("position", e.Position).
		Stringer("performer", e.PerformerID).
		Str("title", e.Title).
		Int("duration_s", e.Duration).
		Msg(e.Message())
	return nil
}
