package ui

import (
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// PagerOptions controls where long output goes.
type PagerOptions struct {
	NoPager bool
	Out     io.Writer // nil means os.Stdout
}

// pagerArgv returns the pager to run, or nil when output should be written
// directly: paging disabled, output redirected away from stdout, or stdout
// not a terminal.
func pagerArgv(opts PagerOptions) []string {
	if opts.NoPager || os.Getenv("J2O_NO_PAGER") != "" {
		return nil
	}
	if opts.Out != nil && opts.Out != os.Stdout {
		return nil
	}
	if !IsTerminal() {
		return nil
	}
	for _, name := range []string{"J2O_PAGER", "PAGER"} {
		if argv := strings.Fields(os.Getenv(name)); len(argv) > 0 {
			return argv
		}
	}
	return []string{"less"}
}

// fitsScreen reports whether content fits the terminal without scrolling.
func fitsScreen(content string) bool {
	_, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || rows <= 0 {
		return false
	}
	return strings.Count(content, "\n") < rows
}

// ToPager shows content through a pager when it is taller than the
// terminal, and writes it straight out otherwise.
func ToPager(content string, opts PagerOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	argv := pagerArgv(opts)
	if argv == nil || fitsScreen(content) {
		_, err := io.WriteString(out, content)
		return err
	}

	cmd := exec.Command(argv[0], argv[1:]...) // #nosec G204 - pager comes from the user's environment
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if os.Getenv("LESS") == "" {
		// Keep colors, quit when it fits, leave the screen alone.
		cmd.Env = append(cmd.Env, "LESS=-RFX")
	}
	return cmd.Run()
}
