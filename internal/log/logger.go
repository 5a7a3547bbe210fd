package log

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/felixgeelhaar/pipectl/internal/errors"
	"github.com/felixgeelhaar/pipectl/pkg/pipeline/client"
)

// Logger is a slog.Logger that knows pipectl's error types. The
// leveled methods (Debug, Info, Warn, Error and their Context forms)
// come from the embedded slog.Logger.
type Logger struct {
	*slog.Logger
	config Config
}

// New builds a Logger from config. A zero Output writes to stderr.
func New(config Config) *Logger {
	w := config.Output.Writer()
	opts := &slog.HandlerOptions{
		Level:     config.Level.ToSlogLevel(),
		AddSource: config.AddSource,
	}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	}

	var attrs []any
	if config.ServiceName != "" {
		attrs = append(attrs, "service", config.ServiceName)
	}
	if config.ServiceVersion != "" {
		attrs = append(attrs, "version", config.ServiceVersion)
	}

	return &Logger{Logger: slog.New(handler).With(attrs...), config: config}
}

// Default logs with DefaultConfig
func Default() *Logger { return New(DefaultConfig()) }

// Development logs with DevelopmentConfig
func Development() *Logger { return New(DevelopmentConfig()) }

// Discard drops everything
func Discard() *Logger {
	cfg := DefaultConfig()
	cfg.Output = OutputDiscard()
	return New(cfg)
}

func (l *Logger) derive(s *slog.Logger) *Logger {
	return &Logger{Logger: s, config: l.config}
}

// With adds attributes to every later record
func (l *Logger) With(args ...any) *Logger {
	return l.derive(l.Logger.With(args...))
}

// WithGroup nests every later attribute under name
func (l *Logger) WithGroup(name string) *Logger {
	return l.derive(l.Logger.WithGroup(name))
}

func (l *Logger) WithTask(taskID string) *Logger {
	return l.With("task_id", taskID)
}

// WithError attaches err. Pipeline errors add error_code and their
// suggestions; request errors add status_code.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.With(errorAttrs(err, "error")...)
}

// LogError records err at ERROR as "operation failed"
func (l *Logger) LogError(err error) {
	l.LogErrorContext(context.Background(), err)
}

func (l *Logger) LogErrorContext(ctx context.Context, err error) {
	if err == nil {
		return
	}
	l.ErrorContext(ctx, "operation failed", errorAttrs(err, "error_message")...)
}

// Enabled reports whether records at level are written
func (l *Logger) Enabled(ctx context.Context, level Level) bool {
	return l.Logger.Enabled(ctx, level.ToSlogLevel())
}

func (l *Logger) Config() Config {
	return l.config
}

func errorAttrs(err error, messageKey string) []any {
	var pErr *errors.PipelineError
	if !stderrors.As(err, &pErr) {
		args := []any{messageKey, err.Error()}
		if reqErr, ok := client.AsRequestError(err); ok {
			args = append(args, "status_code", reqErr.StatusCode)
		}
		return args
	}

	args := []any{"error_code", string(pErr.Code), messageKey, pErr.Message}
	if len(pErr.Suggestions) > 0 {
		args = append(args, "suggestions", pErr.Suggestions)
	}
	if pErr.DocsURL != "" {
		args = append(args, "docs_url", pErr.DocsURL)
	}
	if pErr.Cause != nil {
		args = append(args, "cause", pErr.Cause.Error())
	}
	if reqErr, ok := client.AsRequestError(err); ok {
		args = append(args, "status_code", reqErr.StatusCode)
	}
	return args
}
