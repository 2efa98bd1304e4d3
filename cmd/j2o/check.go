package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/j2o/internal/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the Jira and OpenProject connections",
	Long: `Authenticates against both systems, resolves the target project and
loads the OpenProject vocabulary, without writing anything.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

type checkResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	jc := newJiraClient(cfg)
	oc := newOpenProjectClient(cfg)

	results := make([]checkResult, 4)
	g, ctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		results[0] = checkResult{Name: "jira"}
		me, err := jc.Myself(ctx)
		results[0].OK, results[0].Detail = err == nil, describe(err, func() string { return "as " + me.DisplayName })
		return nil
	})
	g.Go(func() error {
		results[1] = checkResult{Name: "openproject"}
		me, err := oc.Me(ctx)
		results[1].OK, results[1].Detail = err == nil, describe(err, func() string { return "as " + me.Login })
		return nil
	})
	g.Go(func() error {
		results[2] = checkResult{Name: "project " + cfg.OpenProject.ProjectID}
		p, err := oc.Project(ctx, cfg.OpenProject.ProjectID)
		results[2].OK, results[2].Detail = err == nil, describe(err, func() string { return fmt.Sprintf("%s (#%d)", p.Name, p.ID) })
		return nil
	})
	g.Go(func() error {
		results[3] = checkResult{Name: "vocabulary"}
		v, err := oc.LoadVocabulary(ctx)
		results[3].OK, results[3].Detail = err == nil, describe(err, func() string { return v.Describe() })
		return nil
	})
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}
	if jsonOutput {
		if err := outputJSON(cmd, results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			fmt.Fprintln(cmd.OutOrStdout(), ui.CheckLine(r.OK, r.Name, r.Detail))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

// describe returns err's text, or ok() when err is nil.
func describe(err error, ok func() string) string {
	if err != nil {
		return err.Error()
	}
	return ok()
}
