package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"passport-portal/internal/config"
)

// New returns the process logger. The same value is passed to the Temporal
// client, whose logger interface hclog already satisfies.
func New(name string, cfg config.Config) hclog.Logger {
	return newLogger(name, cfg, os.Stderr)
}

func newLogger(name string, cfg config.Config, out io.Writer) hclog.Logger {
	level := hclog.LevelFromString(cfg.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		Output:     out,
		JSONFormat: cfg.LogJSON,
	})
}
