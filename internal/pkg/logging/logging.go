package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ManuelReschke/BizDesk/internal/pkg/env"
)

// Setup configures the global zerolog logger. Dev gets a console writer,
// everything else JSON on stdout.
func Setup() {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(env.GetEnv("LOG_LEVEL", "info"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if env.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "bizdesk").Logger()
}
