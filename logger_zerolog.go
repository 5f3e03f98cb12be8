package eventchannel

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// zerologLogger adapts zerolog to the Logger interface.
type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps an existing zerolog.Logger.
func NewZerologLogger(l zerolog.Logger) Logger {
	return &zerologLogger{logger: l}
}

// NewDefaultLogger returns a timestamped zerolog logger writing to stderr,
// tagged with the component name.
func NewDefaultLogger() Logger {
	return NewWriterLogger(os.Stderr)
}

// NewWriterLogger returns a zerolog-backed logger writing to w. Used by
// tests to capture output.
func NewWriterLogger(w io.Writer) Logger {
	l := zerolog.New(w).With().
		Timestamp().
		Str("component", "eventchannel").
		Logger()
	return &zerologLogger{logger: l}
}

func (l *zerologLogger) WithField(key string, value any) Logger {
	return &zerologLogger{logger: l.logger.With().Interface(key, value).Logger()}
}

func (l *zerologLogger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *zerologLogger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}

func (l *zerologLogger) Warnf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *zerologLogger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(format, args...)
}
