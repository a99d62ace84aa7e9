// Package logger configures the process-wide logrus logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Init sets the level and formatter of the standard logrus logger.
// format is "json" (default) or "text"; an unknown level falls back to
// info.
func Init(level, format string) {
	Configure(logrus.StandardLogger(), os.Stdout, level, format)
}

// Configure applies the same settings to l writing to w.
func Configure(l *logrus.Logger, w io.Writer, level, format string) {
	l.SetOutput(w)
	if strings.EqualFold(format, "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
}
