package config

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// NewLogger builds a timestamped logger writing to w at the configured
// level. Unknown levels fall back to info.
func (c *Config) NewLogger(w io.Writer, prefix string) *log.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
}
