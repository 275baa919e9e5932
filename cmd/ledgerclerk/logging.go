package main

import (
	"io"
	"os"
	"strings"

	clerk "github.com/ledgerclerk/ledgerclerk/pkg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetLogLevel maps a config level name to the zerolog global level.
// Unknown or empty names mean info.
func SetLogLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// SetupLogging sends logs to the console, and to a rotated file when one
// is configured.
func SetupLogging(conf clerk.Config) {
	SetLogLevel(conf.Logging.Level)
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	if conf.Logging.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   conf.Logging.File,
			MaxSize:    conf.Logging.MaxSizeMB,
			MaxBackups: conf.Logging.MaxBackups,
			Compress:   conf.Logging.Compress,
		})
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
