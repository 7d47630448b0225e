package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/komronbek/timetable/internal/config"
)

const timeFormat = "2006-01-02 15:04:05"

// Apply sets the global log level and output writers (console + optional rotating file).
func Apply(cfg config.LogConfig) {
	applyLevel(cfg.Level)
	log.Logger = zerolog.New(outputs(os.Stdout, cfg)).With().Timestamp().Logger()
}

// LevelForVerbosity maps -v counts and the debug switch onto a level name.
// The result is never lower than base.
func LevelForVerbosity(base string, verbosity int, debug bool) string {
	if debug && verbosity < 1 {
		verbosity = 1
	}
	switch {
	case verbosity >= 2 || base == "trace":
		return "trace"
	case verbosity == 1 || base == "debug":
		return "debug"
	default:
		return "info"
	}
}

func applyLevel(level string) {
	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func outputs(console io.Writer, cfg config.LogConfig) io.Writer {
	consoleOutput := zerolog.ConsoleWriter{Out: console, TimeFormat: timeFormat}
	if cfg.File == "" {
		return consoleOutput
	}

	if err := ensureLogDir(cfg.File); err != nil {
		log.Error().Err(err).Str("path", cfg.File).Msg("Failed to prepare log directory; logging to console only")
		return consoleOutput
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	fileConsole := zerolog.ConsoleWriter{
		Out:        fileWriter,
		TimeFormat: timeFormat,
		NoColor:    true,
	}

	return zerolog.MultiLevelWriter(consoleOutput, fileConsole)
}

func ensureLogDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
