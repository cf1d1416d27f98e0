// Package logging builds the structured logger used by cratesync.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	EnvLogLevel     = "CRATESYNC_LOG_LEVEL"
	EnvLogTimestamp = "CRATESYNC_LOG_TIMESTAMP"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Options configures New. An empty Level keeps the profile default.
type Options struct {
	Profile Profile
	Level   string
}

// New returns a logger writing to w. Environment overrides apply on top of
// the profile defaults, and an explicit Options.Level wins over both.
func New(w io.Writer, opts Options) *log.Logger {
	cfg := defaultOptions(opts.Profile)
	applyEnvOverrides(&cfg)
	if lvl, ok := ParseLevel(opts.Level); ok {
		cfg.Level = lvl
	}
	return log.NewWithOptions(w, cfg)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

func defaultOptions(profile Profile) log.Options {
	switch profile {
	case ProfileTest:
		return log.Options{Level: log.DebugLevel}
	default:
		return log.Options{Level: log.InfoLevel, ReportTimestamp: true}
	}
}

func applyEnvOverrides(cfg *log.Options) {
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.ReportTimestamp = v
	}
}

// ParseLevel maps a level name to a log level. It accepts a few aliases
// and reports false for empty or unknown input.
func ParseLevel(raw string) (log.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return log.InfoLevel, false
	case "debug", "trace":
		return log.DebugLevel, true
	case "info":
		return log.InfoLevel, true
	case "warn", "warning":
		return log.WarnLevel, true
	case "error":
		return log.ErrorLevel, true
	case "off", "none", "disabled", "quiet":
		return log.FatalLevel, true
	default:
		return log.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
