package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Log is a leveled logger scoped to a component. Children created with Sub
// inherit the parent's level and carry a dotted component path.
type Log struct {
	zl        zerolog.Logger
	component string
}

type Logger struct {
	App  Log
	HTTP Log
}

func New(level string) *Logger {
	app := newRoot(level, "App")
	return &Logger{
		App:  app,
		HTTP: app.Sub("HTTP"),
	}
}

func newRoot(level, component string) Log {
	lvl := parseLevel(level)
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	zl := zerolog.New(out).Level(lvl).With().Timestamp().Str("component", component).Logger()
	return Log{zl: zl, component: component}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l Log) Sub(name string) Log {
	component := l.component + "." + name
	return Log{
		zl:        l.zl.With().Str("component", component).Logger(),
		component: component,
	}
}

func (l Log) Debugf(format string, args ...any) { l.zl.Debug().Msgf(format, args...) }
func (l Log) Infof(format string, args ...any)  { l.zl.Info().Msgf(format, args...) }
func (l Log) Warnf(format string, args ...any)  { l.zl.Warn().Msgf(format, args...) }
func (l Log) Errorf(format string, args ...any) { l.zl.Error().Msgf(format, args...) }

// Noop discards everything; used in tests.
var Noop = Log{zl: zerolog.Nop()}

func InitForTests() *Logger {
	return &Logger{App: Noop, HTTP: Noop}
}
