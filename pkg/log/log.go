// Package log builds the console logger of the kflow commands and bridges
// it to log/slog for the libraries.
package log

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
)

// LevelEnv names the environment variable holding the log level, e.g.
// "debug". The default level is info.
const LevelEnv = "KFLOW_LOG_LEVEL"

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerologr.NameFieldName = "logger"
	zerologr.NameSeparator = "/"
}

// New returns a zerolog logger writing to stderr, as console output unless
// running in Kubernetes.
func New() *zerolog.Logger {
	var output io.Writer
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		output = os.Stderr
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02T15:04:05.999Z07:00"}
	}

	level, err := zerolog.ParseLevel(os.Getenv(LevelEnv))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if level <= zerolog.DebugLevel {
		// slog debug records arrive as logr V(4)
		zerologr.SetMaxV(4)
		level = zerolog.TraceLevel
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &logger
}

// Slog wraps zl in a slog.Logger.
func Slog(zl *zerolog.Logger) *slog.Logger {
	return slog.New(logr.ToSlogHandler(zerologr.New(zl)))
}
