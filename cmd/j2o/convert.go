package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/j2o/internal/adf"
	"github.com/steveyegge/j2o/internal/ui"
)

var convertCmd = &cobra.Command{
	Use:   "convert [FILE]",
	Short: "Convert an ADF document to OpenProject markup",
	Long: `Reads an Atlassian Document Format JSON document (or a plain string)
from FILE or stdin and prints the markup j2o would write.

Attachments are printed as <!--ATTACH{name}--> placeholders; a migration
replaces them with links to the uploaded files.

Examples:
  j2o convert description.json
  curl -s .../rest/api/3/issue/PROJ-1 | jq .fields.description | j2o convert --preview`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().Bool("preview", false, "Render the markup for the terminal")
	convertCmd.Flags().Bool("no-pager", false, "Do not page long output")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0]) // #nosec G304 - user-supplied input file
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	markup := adf.Convert(raw)

	if jsonOutput {
		return outputJSON(cmd, map[string]interface{}{
			"markup":       markup,
			"placeholders": adf.Placeholders(markup),
		})
	}
	out := markup + "\n"
	if preview, _ := cmd.Flags().GetBool("preview"); preview {
		out = ui.RenderMarkdown(markup)
	}
	noPager, _ := cmd.Flags().GetBool("no-pager")
	return ui.ToPager(out, ui.PagerOptions{NoPager: noPager, Out: cmd.OutOrStdout()})
}
