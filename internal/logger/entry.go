package logger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry collects metric fields for a single log line, separate from the
// tracing fields carried on the context logger.
type Entry struct {
	fields Fields
}

// With starts an Entry with metric fields, e.g.
// logger.With(logger.Fields{logger.FieldCount: n}).WithDuration(ms).Info(ctx, "Tagging completed").
func With(fields Fields) *Entry {
	return &Entry{fields: fields}
}

// WithDuration returns a copy of e with duration_ms set.
func (e *Entry) WithDuration(ms int64) *Entry {
	merged := make(Fields, len(e.fields)+1)
	for k, v := range e.fields {
		merged[k] = v
	}
	merged[FieldDurationMs] = ms
	return &Entry{fields: merged}
}

// Since is WithDuration measured from start.
func (e *Entry) Since(start time.Time) *Entry {
	return e.WithDuration(time.Since(start).Milliseconds())
}

func (e *Entry) logf(ctx context.Context, level logrus.Level, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Logf(level, format, args...)
}

// Info logs at Info level with metric fields.
func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	e.logf(ctx, logrus.InfoLevel, format, args...)
}

// Warn logs at Warn level with metric fields.
func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	e.logf(ctx, logrus.WarnLevel, format, args...)
}

// Error logs at Error level with metric fields.
func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	e.logf(ctx, logrus.ErrorLevel, format, args...)
}
