// Package logger wraps the process-wide structured logger.
//
// The configuration surface (level, format, output) comes from
// pkg/config.LoggingConfig; everything else in the repo logs through the
// package-level helpers so call sites stay terse.
package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Configure applies the logging configuration. It is called once at startup
// before any other package logs.
func Configure(level, format, output string) error {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)

	switch format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	switch output {
	case "", "stdout":
		log.SetOutput(os.Stdout)
	case "stderr":
		log.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening log file %s: %w", output, err)
		}
		log.SetOutput(f)
	}

	return nil
}

// WithField returns an entry carrying a structured field, for call sites
// that log several times about the same subject.
func WithField(key string, value any) *logrus.Entry {
	return log.WithField(key, value)
}

func Debug(format string, v ...any) {
	log.Debugf(format, v...)
}

func Info(format string, v ...any) {
	log.Infof(format, v...)
}

func Warn(format string, v ...any) {
	log.Warnf(format, v...)
}

func Error(format string, v ...any) {
	log.Errorf(format, v...)
}
