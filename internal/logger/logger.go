// Package logger configures the global zerolog logger.
package logger

import (
    "io"
    "os"
    "strings"
    "time"

    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
)

// Init sets up the global logger.  In dev the output is human readable;
// other environments emit JSON lines.  LOG_LEVEL overrides the level.
func Init(env string) {
    zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

    var out io.Writer = os.Stdout
    if env == "" || strings.EqualFold(env, "dev") || strings.EqualFold(env, "local") {
        out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
    }
    log.Logger = zerolog.New(out).With().Timestamp().Str("service", "club-booking").Logger()

    level := zerolog.InfoLevel
    if lv, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))); err == nil && lv != zerolog.NoLevel {
        level = lv
    }
    zerolog.SetGlobalLevel(level)

    log.Info().Str("env", env).Str("level", level.String()).Msg("logger initialized")
}

// LogError logs err with message when err is non-nil.
func LogError(err error, message string) {
    if err != nil {
        log.Error().Err(err).Msg(message)
    }
}
