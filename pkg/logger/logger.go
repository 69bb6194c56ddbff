// Package logger provides the structured logger shared by all registry
// components. It is a thin wrapper around zerolog so services depend on a
// stable local API rather than the logging backend directly.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger emits structured log events tagged with a component name.
type Logger struct {
	z zerolog.Logger
}

// New creates a logger writing to w at the given level. Unknown levels fall
// back to info.
func New(w io.Writer, component, level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	z := zerolog.New(w).Level(lvl).With().Timestamp().Str("component", component).Logger()
	return &Logger{z: z}
}

// NewDefault returns an info-level logger on stderr for the component.
func NewDefault(component string) *Logger {
	return New(os.Stderr, component, "info")
}

// With returns a child logger carrying an extra key/value pair.
func (l *Logger) With(key, value string) *Logger {
	if l == nil {
		return NewDefault(key)
	}
	return &Logger{z: l.z.With().Str(key, value).Logger()}
}

func (l *Logger) Debugf(format string, args ...any) { l.z.Debug().Msgf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.z.Info().Msgf(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.z.Warn().Msgf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.z.Error().Msgf(format, args...) }

func (l *Logger) Debug(msg string) { l.z.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.z.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.z.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.z.Error().Msg(msg) }
