// Package logger wraps zerolog behind the printf-style Infof/Warnf/Errorf/
// Debugf surface used throughout this codebase, matching the call shape the
// decision and trader layers of the reference bot use.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log zerolog.Logger
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()
}

// Configure swaps the underlying writer and level. level accepts zerolog
// level strings ("debug", "info", "warn", "error"); unrecognized values fall
// back to "info".
func Configure(w io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log = zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// Field is a single structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

func F(key string, value interface{}) Field { return Field{Key: key, Value: value} }

func withFields(e *zerolog.Event, fields []Field) *zerolog.Event {
	for _, f := range fields {
		e = e.Interface(f.Key, f.Value)
	}
	return e
}

func Infof(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info().Msgf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn().Msgf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error().Msgf(format, args...)
}

func Debugf(format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug().Msgf(format, args...)
}

// Info logs a message with structured fields, used at component boundaries
// where §7 requires one line per failure carrying ticker/signal_id/order_id.
func Info(msg string, fields ...Field) {
	mu.RLock()
	defer mu.RUnlock()
	withFields(log.Info(), fields).Msg(msg)
}

func Warn(msg string, fields ...Field) {
	mu.RLock()
	defer mu.RUnlock()
	withFields(log.Warn(), fields).Msg(msg)
}

func Error(msg string, fields ...Field) {
	mu.RLock()
	defer mu.RUnlock()
	withFields(log.Error(), fields).Msg(msg)
}

func Debug(msg string, fields ...Field) {
	mu.RLock()
	defer mu.RUnlock()
	withFields(log.Debug(), fields).Msg(msg)
}
