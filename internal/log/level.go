package log

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level is a slog level restricted to the four names pipectl accepts
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

func (l Level) String() string {
	return slog.Level(l).String()
}

// ToSlogLevel returns l as a slog.Level
func (l Level) ToSlogLevel() slog.Level {
	return slog.Level(l)
}

// ParseLevel is ParseLevelStrict that falls back to INFO
func ParseLevel(s string) Level {
	level, err := ParseLevelStrict(s)
	if err != nil {
		return LevelInfo
	}
	return level
}

// ParseLevelStrict accepts debug, info, warn (or warning) and error in
// any case. An empty string is INFO.
func ParseLevelStrict(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return LevelInfo, nil
	case "warning":
		return LevelWarn, nil
	case "debug", "info", "warn", "error":
		var l slog.Level
		if err := l.UnmarshalText([]byte(name)); err != nil {
			return LevelInfo, err
		}
		return Level(l), nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q (supported: debug, info, warn, error)", s)
}
