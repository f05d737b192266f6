// Package logger holds the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the global logger. It is usable before Init, writing warnings to
// stderr, so library packages and tests never see a nil logger.
var Log = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	return l
}

// Init configures the global logger. It should be called once from main.
// LOG_LEVEL and LOG_FORMAT override the arguments.
func Init(level, format string, out io.Writer) {
	Log = logrus.New()

	// 1. Level: environment first, then the argument, default "info".
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level = v
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// 2. Formatter: "json" for collection, text otherwise.
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		format = v
	}
	if strings.ToLower(format) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	// 3. Output.
	if out == nil {
		out = os.Stderr
	}
	Log.SetOutput(out)
}

// Discard silences the global logger.
func Discard() {
	Log.SetOutput(io.Discard)
}
