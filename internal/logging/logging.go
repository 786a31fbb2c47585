// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pable/rift-rewind/internal/config"
)

// Init sets the global level and output. Logs go to stderr so command
// output on stdout stays clean.
func Init(cfg config.LogConfig) {
	InitTo(os.Stderr, cfg)
}

// InitTo is Init with an explicit writer.
func InitTo(w io.Writer, cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	out := w
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger
}
