package logging

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Options controls the root logger
type Options struct {
	Name   string
	Level  string
	Debug  bool
	JSON   bool
	Output io.Writer
}

// New creates the root logger. Debug forces the debug level; an unknown level
// falls back to info.
func New(opts Options) hclog.Logger {
	level := hclog.LevelFromString(strings.TrimSpace(opts.Level))
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	if opts.Debug && level > hclog.Debug {
		level = hclog.Debug
	}

	output := opts.Output
	if output == nil {
		output = os.Stderr
	}

	name := opts.Name
	if name == "" {
		name = "km-plugins"
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		Output:     output,
		JSONFormat: opts.JSON,
	})
}

// LogErrorTree logs err and, when its chain contains a joined error, each
// joined error on its own line
func LogErrorTree(logger hclog.Logger, msg string, err error, args ...interface{}) {
	logger.Error(msg, append(args, "error", err)...)

	for e := err; e != nil; e = errors.Unwrap(e) {
		joined, ok := e.(interface{ Unwrap() []error })
		if !ok {
			continue
		}
		for _, sub := range joined.Unwrap() {
			logger.Error("nested error", append(args, "error", sub)...)
		}
		return
	}
}
