package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/minimall/storefront/core"
)

// Logger implements core.Logger on top of logrus.
// JSON output uses the timestamp/severity/message field names expected by
// the cluster's log pipeline; text output is for local development.
type Logger struct {
	entry *logrus.Entry
	out   io.Closer
}

var _ core.Logger = (*Logger)(nil)

// NewLogger builds a logger from the logging section of the config.
// Output may be "stdout", "stderr" or a file path.
func NewLogger(cfg core.LoggingConfig, serviceName string) (*Logger, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, core.ErrInvalidConfiguration)
	}
	l.SetLevel(level)

	switch cfg.Format {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.TimeOnly,
		})
	case "json", "":
		l.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "severity",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		return nil, fmt.Errorf("log format %q: %w", cfg.Format, core.ErrInvalidConfiguration)
	}

	var closer io.Closer
	switch cfg.Output {
	case "stdout", "":
		l.SetOutput(os.Stdout)
	case "stderr":
		l.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.SetOutput(f)
		closer = f
	}

	return &Logger{
		entry: l.WithField("service", serviceName),
		out:   closer,
	}, nil
}

// NewLoggerFromLogrus wraps an existing logrus logger; tests use it to
// capture output.
func NewLoggerFromLogrus(l *logrus.Logger) *Logger {
	return &Logger{entry: logrus.NewEntry(l)}
}

// With returns a child logger carrying extra fields on every line.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(fields), out: l.out}
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.out != nil {
		return l.out.Close()
	}
	return nil
}

func (l *Logger) Info(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Info(msg)
}

func (l *Logger) Error(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Error(msg)
}

func (l *Logger) Warn(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Warn(msg)
}

func (l *Logger) Debug(msg string, fields map[string]interface{}) {
	l.entry.WithFields(fields).Debug(msg)
}

func (l *Logger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.entry.WithContext(ctx).WithFields(EnrichLogFields(ctx, fields)).Info(msg)
}

func (l *Logger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.entry.WithContext(ctx).WithFields(EnrichLogFields(ctx, fields)).Error(msg)
}

func (l *Logger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.entry.WithContext(ctx).WithFields(EnrichLogFields(ctx, fields)).Warn(msg)
}

func (l *Logger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.entry.WithContext(ctx).WithFields(EnrichLogFields(ctx, fields)).Debug(msg)
}
