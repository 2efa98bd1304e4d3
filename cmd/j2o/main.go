package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/j2o/internal/config"
	"github.com/steveyegge/j2o/internal/logging"
	"github.com/steveyegge/j2o/internal/telemetry"
	"github.com/steveyegge/j2o/internal/ui"
)

var (
	// Version is overridden by ldflags at build time.
	Version = "0.1.0"
	Build   = "dev"
)

var (
	configPath  string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool

	cfg       *config.Config
	logger    = slog.New(slog.DiscardHandler)
	logCloser io.Closer

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

// commands that run without a config file
var noConfigCommands = map[string]bool{
	"convert": true,
	"version": true,
	"help":    true,
}

var rootCmd = &cobra.Command{
	Use:   "j2o",
	Short: "j2o - migrate Jira projects into OpenProject",
	Long: `Migrates the issues of a Jira project into an OpenProject project:
work packages, descriptions, comments, attachments, watchers and links.

Runs are incremental and safe to repeat. Every work package records its
Jira key in a custom field, so a second run updates in place instead of
creating duplicates.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		ui.InitColor()

		if noConfigCommands[cmd.Name()] {
			return nil
		}
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		if err := setupLogging(cmd); err != nil {
			return err
		}
		if err := telemetry.Init(rootCtx, "j2o", Version); err != nil {
			logger.Warn("telemetry disabled", "error", err)
		}
		return nil
	},
}

// shutdown flushes telemetry and the log file. It runs after every
// command, including failed ones.
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(ctx); err != nil && logger != nil {
		logger.Warn("telemetry flush failed", "error", err)
	}
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if rootCancel != nil {
		rootCancel()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./j2o.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Only log errors")
	rootCmd.PersistentFlags().String("log-file", "", "Also write a JSON run log to this file (rotated)")
}

// setupLogging applies --verbose, --quiet and --log-file over the config.
func setupLogging(cmd *cobra.Command) error {
	opts := logging.Options{
		Level: cfg.Log.Level,
		JSON:  cfg.Log.JSON,
		File:  cfg.Log.File,
	}
	if f, _ := cmd.Flags().GetString("log-file"); f != "" {
		opts.File = f
	}
	switch {
	case verboseFlag:
		opts.Level = "debug"
	case quietFlag:
		opts.Level = "error"
	}
	l, closer, err := logging.New(opts)
	if err != nil {
		return err
	}
	logger, logCloser = l, closer
	return nil
}

// outputJSON writes v as indented JSON to the command's output.
func outputJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return outputJSON(cmd, map[string]string{"version": Version, "build": Build})
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "j2o version %s (%s)\n", Version, Build)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	err := rootCmd.Execute()
	shutdown()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}
