package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// Options configures the global logger
type Options struct {
	// Development switches to a human readable console writer at debug level
	Development bool
	// Level overrides the default level when set
	Level string
	// Output defaults to stdout
	Output io.Writer
}

// Initialize sets up the global logger with the specified configuration
func Initialize(isDevelopment bool) {
	Setup(Options{Development: isDevelopment})
}

// Setup configures the global logger from opts
func Setup(opts Options) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	if opts.Development {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
		}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if opts.Development {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if opts.Level != "" {
		SetLogLevel(opts.Level)
	}
}

// GetLogger returns a logger with the component field set
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// SetLogLevel sets the global log level. Unknown levels fall back to info.
func SetLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
