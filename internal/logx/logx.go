// Package logx wires up the server's structured logger: one shared
// logrus.Logger, with per-subsystem fields rather than per-subsystem
// loggers.
package logx

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. Configure() adjusts its level and
// output; until called it logs at Info to stderr.
var Log = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}()

// Configure sets the logger's level from a string ("debug", "info",
// "warn", "error"); an unrecognized level leaves the prior level in place
// and logs a warning.
func Configure(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Log.WithField("requested", level).Warn("unknown log level, keeping current")
		return
	}
	Log.SetLevel(lvl)
}

// For returns a logger scoped to a named component, e.g. For("tick").
func For(component string) *logrus.Entry {
	return Log.WithField("component", component)
}
