// Package sinks provides ready-made progress.Sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/pagemill/pagemill/internal/progress"
)

// LogSink writes each progress event as a structured log line. Handy during
// development and when no metrics backend is wired.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.logger.Info("crawl progress",
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("site_id", evt.SiteID),
			zap.String("stage", string(evt.Stage)),
			zap.String("url", evt.URL),
			zap.Int64("pages", evt.Pages),
			zap.String("reason", evt.Reason),
			zap.Duration("dur", evt.Dur),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
