package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/steveyegge/j2o/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
	Long: `Settings come from j2o.yaml (or --config) and J2O_* environment
variables. The legacy JIRA_URL, JIRA_USERNAME, JIRA_API_TOKEN,
OPENPROJECT_URL and OPENPROJECT_API_KEY variables are honored too.

Example j2o.yaml:
  jira:
    url: https://company.atlassian.net
    username: you@company.com
    api_token: ...
    project: PROJ
  openproject:
    url: https://openproject.company.com
    api_key: ...
    project_id: migrated-proj
    correlation_field: customField12`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := cfg.Redacted()
		if jsonOutput {
			return outputJSON(cmd, shown)
		}
		out := cmd.OutOrStdout()
		source := cfg.File
		if source == "" {
			source = "no config file, environment only"
		}
		fmt.Fprintln(out, ui.RenderMuted("# "+source))
		data, err := yaml.Marshal(shown)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		if err == nil {
			if verr := cfg.Validate(); verr != nil {
				fmt.Fprintf(out, "\n%s\n%v\n", ui.RenderWarn("Incomplete:"), verr)
			}
		}
		return err
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
