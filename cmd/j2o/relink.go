package main

import (
	"github.com/spf13/cobra"
)

var relinkCmd = &cobra.Command{
	Use:   "relink",
	Short: "Re-create missing relations between migrated work packages",
	Long: `Reads every issue of the Jira project and creates the relations that
are missing between already migrated work packages. No work package is
created or changed.

Use it after a run that left relations unresolved, for example because
the linked issue belonged to another Jira project that has since been
migrated into the same OpenProject project. Work packages in other
OpenProject projects are not looked up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyRunFlags(cmd)
		engine, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		lock, err := acquireRunLock(cfg, "relink")
		if err != nil {
			return err
		}
		defer func() { _ = lock.Release() }()

		rep, err := engine.Relink(rootCtx, cfg.Options())
		if err != nil {
			return err
		}
		return finishRun(cmd, "Relink", rep)
	},
}

func init() {
	relinkCmd.Flags().Bool("dry-run", false, "List the relations that would be created")
	relinkCmd.Flags().String("report", "", "Write the run report as YAML to this file")
	relinkCmd.Flags().String("mappings", "", "TOML file with link mappings")
	rootCmd.AddCommand(relinkCmd)
}
