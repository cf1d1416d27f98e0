package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/OpenMined/libsignal-protocol-syft/internal/logging"
	"github.com/OpenMined/libsignal-protocol-syft/internal/workspace"
)

const envPrefix = "CRATESYNC"

// settings are the persistent flags after flag > env > default resolution.
type settings struct {
	Root     string
	Plan     string
	LogLevel string
}

func loadSettings(cmd *cobra.Command) (settings, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, name := range []string{"root", "plan", "log-level"} {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return settings{}, fmt.Errorf("binding --%s: %w", name, err)
		}
	}

	s := settings{
		Root:     v.GetString("root"),
		Plan:     v.GetString("plan"),
		LogLevel: v.GetString("log-level"),
	}
	if s.LogLevel != "" {
		if _, ok := logging.ParseLevel(s.LogLevel); !ok {
			return settings{}, fmt.Errorf("invalid log level %q", s.LogLevel)
		}
	}
	return s, nil
}

func newLogger(cmd *cobra.Command, s settings) *log.Logger {
	return logging.New(cmd.ErrOrStderr(), logging.Options{Level: s.LogLevel})
}

// loadWorkspace resolves settings and loads the plan and lock for cmd.
func loadWorkspace(cmd *cobra.Command) (*workspace.Context, *log.Logger, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cmd, s)
	ctx, err := workspace.Load(s.Root, s.Plan)
	if err != nil {
		return nil, nil, err
	}
	if ctx.PlanPath == "" {
		logger.Debug("no plan file found; using the built-in plan", "root", ctx.Root)
	}
	return ctx, logger, nil
}
