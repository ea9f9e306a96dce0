// Package commands implements the mpm command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mpm-dev/mpm/plugin/ports"
	"github.com/mpm-dev/mpm/prompt"
	"github.com/spf13/cobra"
)

// EnvLogLevel names the environment variable setting the log level.
const EnvLogLevel = "MPM_LOG_LEVEL"

// options carries global flags and the process's collaborators.
type options struct {
	configPath string
	verbose    bool
	yes        bool

	out      io.Writer
	errOut   io.Writer
	logger   *slog.Logger
	prompter ports.Prompter
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	opts := &options{out: os.Stdout, errOut: os.Stderr}
	rootCmd := newRootCommand(opts, version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(opts *options, version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mpm",
		Short: "mpm - plugin jar version manager",
		Long: `mpm keeps the plugin directories of servers in sync with versioned
artifact repositories.

Each server declares the plugins it wants with a version range. mpm stores
every installed version under plugins/versions and selects the active one
with a plugins/<name>.jar symlink.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.setup()
		},
	}
	rootCmd.SetOut(opts.out)
	rootCmd.SetErr(opts.errOut)

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (default $MPM_CONFIG or ~/mpm.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&opts.yes, "yes", "y", false, "approve all confirmations")

	rootCmd.AddCommand(newRepoCommand(opts))
	rootCmd.AddCommand(newServerCommand(opts))

	return rootCmd
}

// setup installs the logger and prompter unless a test provided them.
func (o *options) setup() {
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(o.errOut, &slog.HandlerOptions{Level: o.logLevel()}))
	}
	if o.prompter == nil {
		o.prompter = prompt.NewTerminalPrompter(prompt.WithAssumeYes(o.yes))
	}
}

func (o *options) logLevel() slog.Level {
	if o.verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(os.Getenv(EnvLogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func (o *options) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.out, format, args...)
}
