// Command msgflowd runs the msgflow bridge and offers local tooling around
// the extensions engine.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/drblury/msgflow/internal/runtime/extensions"
	loggingpkg "github.com/drblury/msgflow/internal/runtime/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	logLevel   string
	strictIDs  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "msgflowd",
		Short:         "msgflow: message enrichment and render planning",
		Long:          "msgflowd consumes chat messages from a message bus, enriches them and publishes render plans.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file (MSGFLOW_* environment variables override it)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	root.PersistentFlags().BoolVar(&opts.strictIDs, "strict-ids", false, "reject duplicate handler ids")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newProcessCmd(opts))
	root.AddCommand(newExtensionsCmd(opts))
	return root
}

func parseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

func newLogger(cmd *cobra.Command, level string) (loggingpkg.ServiceLogger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl})
	return loggingpkg.NewSlogServiceLogger(slog.New(handler)), nil
}

// newContainer builds a container with the built-in handlers registered.
func newContainer(log loggingpkg.ServiceLogger, opts extensions.Options) (*extensions.Container, error) {
	opts.Logger = log
	c := extensions.New(opts)
	if err := c.RegisterDefaults(extensions.Dependencies{}); err != nil {
		return nil, err
	}
	return c, nil
}
