// Package logging provides structured logging with run ID support
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// RunIDKey is the context key for the run ID
	RunIDKey ContextKey = "run_id"
	// SpeakerKey is the context key for the acting speaker name
	SpeakerKey ContextKey = "speaker"
	// SpeakerIDKey is the context key for the acting speaker id
	SpeakerIDKey ContextKey = "speaker_id"
	// ComponentKey is the context key for component name
	ComponentKey ContextKey = "component"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a new Logger instance
func New(component, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stderr)

	return &Logger{
		Logger:    logger,
		component: component,
	}
}

// NewFromEnv constructs a logger using LOG_LEVEL and LOG_FORMAT environment variables.
// Defaults to "error" and "text" when unset: the front-end shares stdout with
// program output, so operational logging stays quiet unless asked for.
func NewFromEnv(component string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "error"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "text"
	}
	return New(component, level, format)
}

// WithContext creates a new logger entry with context values
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)

	if runID := ctx.Value(RunIDKey); runID != nil {
		entry = entry.WithField("run_id", runID)
	}
	if speaker := ctx.Value(SpeakerKey); speaker != nil {
		entry = entry.WithField("speaker", speaker)
	}
	if speakerID := ctx.Value(SpeakerIDKey); speakerID != nil {
		entry = entry.WithField("speaker_id", speakerID)
	}

	return entry
}

// WithSpeaker creates a new logger entry attributed to a speaker id
func (l *Logger) WithSpeaker(speakerID int) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"component":  l.component,
		"speaker_id": speakerID,
	})
}

// WithFields creates a new logger entry with custom fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["component"] = l.component
	return l.Logger.WithFields(fields)
}

// WithError creates a new logger entry with error
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{
		"component": l.component,
		"error":     err.Error(),
	})
}

// SetOutput sets the logger output
func (l *Logger) SetOutput(output io.Writer) {
	l.Logger.SetOutput(output)
}

// Context helper functions

// NewRunID generates a new run ID
func NewRunID() string {
	return uuid.New().String()
}

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithSpeaker adds a speaker name to the context
func WithSpeaker(ctx context.Context, speaker string) context.Context {
	return context.WithValue(ctx, SpeakerKey, speaker)
}

// GetSpeaker retrieves the speaker name from context
func GetSpeaker(ctx context.Context) string {
	if speaker, ok := ctx.Value(SpeakerKey).(string); ok {
		return speaker
	}
	return ""
}

// WithSpeakerID adds a speaker id to the context
func WithSpeakerID(ctx context.Context, speakerID int) context.Context {
	return context.WithValue(ctx, SpeakerIDKey, speakerID)
}

// GetSpeakerID retrieves the speaker id from context, or -1 when absent
func GetSpeakerID(ctx context.Context) int {
	if speakerID, ok := ctx.Value(SpeakerIDKey).(int); ok {
		return speakerID
	}
	return -1
}

// Structured logging helpers

// LogOperation logs a kernel operation with its terminal status
func (l *Logger) LogOperation(ctx context.Context, operation, action, status string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"operation": operation,
		"action":    action,
		"status":    status,
	}).Debug("kernel operation")
}

// LogBreak logs a kernel break and its recorded reason
func (l *Logger) LogBreak(ctx context.Context, operation, breakReason string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"operation":    operation,
		"break_reason": breakReason,
	}).Warn("kernel break")
}

// LogLedgerAppend logs a ledger append with chain position
func (l *Logger) LogLedgerAppend(ctx context.Context, entryID int, operation, entryHash string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"entry_id":   entryID,
		"operation":  operation,
		"entry_hash": entryHash,
	}).Debug("ledger append")
}

// LogEvaluation logs an expression evaluation result
func (l *Logger) LogEvaluation(ctx context.Context, exprID int, status string, duration time.Duration) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"expression_id": exprID,
		"status":        status,
		"duration_ms":   duration.Milliseconds(),
	}).Debug("expression evaluated")
}

// LogAudit logs a world-layer audit access
func (l *Logger) LogAudit(ctx context.Context, worldID int, caller int, entries int) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"world_id": worldID,
		"caller":   caller,
		"entries":  entries,
		"audit":    true,
	}).Info("world audit")
}

// Global logger instance (can be initialized once at startup)
var defaultLogger *Logger

// InitDefault initializes the default logger
func InitDefault(component, level, format string) {
	defaultLogger = New(component, level, format)
}

// Default returns the default logger
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New("logica", "error", "text")
	}
	return defaultLogger
}
