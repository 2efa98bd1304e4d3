package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/steveyegge/j2o/internal/telemetry"
	"github.com/steveyegge/j2o/internal/tracker"
	"github.com/steveyegge/j2o/internal/ui"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate a Jira project into OpenProject",
	Long: `Migrates every issue of the configured Jira project, oldest first.

Each issue ends up created, updated, skipped or errored. A failure on one
issue does not stop the run. Links are created as soon as both ends exist;
whatever is left is retried once at the end.

Examples:
  j2o migrate --dry-run --report plan.yaml   # Preview without writing
  j2o migrate                                # Incremental run (default)
  j2o migrate --incremental=false            # Re-apply every issue in place
  j2o migrate --updated-since 2w             # Only issues touched in two weeks`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().Bool("dry-run", false, "Read everything but write nothing")
	migrateCmd.Flags().Bool("incremental", true, "Skip issues migrated by an earlier run")
	migrateCmd.Flags().String("report", "", "Write the run report as YAML to this file")
	migrateCmd.Flags().String("updated-since", "", "Only issues updated since (e.g. 2w, 2024-12-01, yesterday)")
	migrateCmd.Flags().String("mappings", "", "TOML file with type, status, priority and link mappings")
	migrateCmd.Flags().String("users", "", "YAML file mapping Jira accounts to OpenProject users")
	migrateCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(migrateCmd)
}

// applyRunFlags lets command-line flags override the config file.
func applyRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("dry-run") {
		cfg.Migrate.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("incremental") {
		cfg.Migrate.Incremental, _ = flags.GetBool("incremental")
	}
	if flags.Changed("updated-since") {
		cfg.Migrate.UpdatedSince, _ = flags.GetString("updated-since")
	}
	if flags.Changed("mappings") {
		cfg.Migrate.MappingsFile, _ = flags.GetString("mappings")
	}
	if flags.Changed("users") {
		cfg.Migrate.UsersFile, _ = flags.GetString("users")
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	applyRunFlags(cmd)
	engine, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	opts := cfg.Options()

	yes, _ := cmd.Flags().GetBool("yes")
	if !opts.DryRun && !yes && !jsonOutput && ui.IsTerminal() {
		ok, err := confirmMigrate(opts)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Migration cancelled.")
			return nil
		}
	}

	lock, err := acquireRunLock(cfg, "migrate")
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	rep, err := engine.Run(rootCtx, opts)
	if err != nil {
		return err
	}
	return finishRun(cmd, "Migration", rep)
}

// finishRun prints or saves the report and turns errored issues into a
// non-zero exit.
func finishRun(cmd *cobra.Command, title string, rep *tracker.RunReport) error {
	telemetry.RecordRun(rootCtx, cmd.Name(), rep)
	if path, _ := cmd.Flags().GetString("report"); path != "" {
		if err := writeReport(path, rep); err != nil {
			return err
		}
		logger.Info("report written", "path", path)
	}
	if jsonOutput {
		if err := outputJSON(cmd, rep); err != nil {
			return err
		}
	} else {
		printSummary(cmd.OutOrStdout(), title, rep, verboseFlag)
	}
	if n := rep.Stats.Errored; n > 0 {
		return &exitError{code: 2, err: fmt.Errorf("%d issue(s) failed to migrate", n)}
	}
	return nil
}

func confirmMigrate(opts tracker.Options) (bool, error) {
	mode := "incremental"
	if !opts.Incremental {
		mode = "full (every issue is re-applied)"
	}
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Migrate Jira project %s into OpenProject project %s?", opts.ProjectKey, opts.ProjectID)).
				Description("Mode: " + mode).
				Affirmative("Migrate").
				Negative("Cancel").
				Value(&ok),
		),
	).WithTheme(huh.ThemeDracula()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
