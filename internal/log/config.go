package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format selects the slog handler
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

func (f Format) String() string {
	return string(f)
}

// ParseFormat reads "json" in any case; everything else is text, which
// suits an interactive terminal.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

// Output is a log destination. Only file outputs own what they write to.
type Output struct {
	writer io.Writer
	closer io.Closer
}

func (o Output) Writer() io.Writer {
	if o.writer == nil {
		return os.Stderr
	}
	return o.writer
}

// Close closes a file output and is a no-op otherwise
func (o Output) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

// NewOutput wraps w without taking ownership of it
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// OutputStderr keeps stdout free for command results
func OutputStderr() Output {
	return NewOutput(os.Stderr)
}

// OutputDiscard is used while the TUI owns the terminal
func OutputDiscard() Output {
	return NewOutput(io.Discard)
}

// OutputFile appends to path, creating it and its directory if needed
func OutputFile(path string) (Output, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Output{}, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Output{}, fmt.Errorf("open log file: %w", err)
	}
	return Output{writer: f, closer: f}, nil
}

// Config describes a Logger
type Config struct {
	Level     Level
	Format    Format
	Output    Output
	AddSource bool

	// ServiceName and ServiceVersion are attached to every record as
	// "service" and "version" when set
	ServiceName    string
	ServiceVersion string
}

// DefaultConfig logs INFO and above as text to stderr
func DefaultConfig() Config {
	return Config{
		Level:          LevelInfo,
		Format:         FormatText,
		Output:         OutputStderr(),
		ServiceName:    "pipectl",
		ServiceVersion: "dev",
	}
}

// DevelopmentConfig is DefaultConfig at DEBUG with source locations
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = LevelDebug
	cfg.AddSource = true
	return cfg
}
