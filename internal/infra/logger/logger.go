// Package logger owns the process-wide zerolog logger.
package logger

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	global = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
)

// ErrUnsupportedFormat is returned by New for formats other than json/console.
var ErrUnsupportedFormat = errors.New("unsupported log format")

// Get returns a copy of the global logger. The pointer lets callers chain
// level methods directly, e.g. logger.Get().Warn().
func Get() *zerolog.Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	return &l
}

// New builds a logger for level ("debug", "info", ...) and format ("json" | "console")
// writing to out, and installs it as the global logger.
func New(level, format string, out io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, err
	}
	if out == nil {
		out = os.Stdout
	}

	var l zerolog.Logger
	switch strings.ToLower(format) {
	case "json":
		l = zerolog.New(out)
	case "console":
		l = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	default:
		return zerolog.Logger{}, ErrUnsupportedFormat
	}
	l = l.With().Timestamp().Str("service", "safeboy").Logger().Level(lvl)

	mu.Lock()
	global = l
	mu.Unlock()
	return l, nil
}
