package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Init configures the logrus standard logger with the given level and
// format. If w is nil, os.Stderr is used. Format must be "text" or "json".
func Init(level, format string, w ...io.Writer) error {
	var writer io.Writer = os.Stderr
	if len(w) > 0 && w[0] != nil {
		writer = w[0]
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	std := logrus.StandardLogger()
	std.SetOutput(writer)
	std.SetLevel(lvl)
	switch format {
	case "json":
		std.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		std.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q (expected text or json)", format)
	}
	return nil
}

// New returns a logger with a "component" field for package-scoped logging.
func New(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}

// Discard is a logger that drops everything; handy as a default.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
