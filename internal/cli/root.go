// Package cli is the hatchling command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moorebrett0/hatchling/internal/config"
)

const defaultConfigPath = "hatchling.yaml"

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "hatchling",
		Short:         "A virtual pet that lives on a serial button gadget",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to the YAML config file")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		slog.SetDefault(newLogger(cfg.Log, cmd.ErrOrStderr()))
		return cfg, nil
	}

	root.AddCommand(
		newRunCmd(load),
		newReplayCmd(load),
		newPortsCmd(load),
	)
	return root
}

type loader func(cmd *cobra.Command) (*config.Config, error)

// newLogger builds the process logger from config. Validation already
// rejected unknown levels and formats.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
