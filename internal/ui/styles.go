// Package ui renders j2o's terminal output: run summaries, check results
// and markup previews. Colors follow the Ayu palette in light and dark mode.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorPass = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	ColorWarn = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	ColorFail = lipgloss.AdaptiveColor{Light: "#f07171", Dark: "#f07178"}
	// Muted is used for labels and dry-run markers.
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	ColorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}
)

var (
	PassStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconSkip = "-"
)

const separator = "──────────────────────────────────────────"

func RenderPass(s string) string   { return PassStyle.Render(s) }
func RenderWarn(s string) string   { return WarnStyle.Render(s) }
func RenderFail(s string) string   { return FailStyle.Render(s) }
func RenderMuted(s string) string  { return MutedStyle.Render(s) }
func RenderAccent(s string) string { return AccentStyle.Render(s) }

// RenderCategory renders a section header in uppercase.
func RenderCategory(s string) string {
	return CategoryStyle.Render(strings.ToUpper(s))
}

func RenderSeparator() string {
	return MutedStyle.Render(separator)
}

// CheckLine renders one line of `j2o check` output.
func CheckLine(ok bool, name, detail string) string {
	icon, style := IconPass, PassStyle
	if !ok {
		icon, style = IconFail, FailStyle
	}
	line := style.Render(icon) + " " + name
	if detail != "" {
		line += " " + MutedStyle.Render(detail)
	}
	return line
}

// OutcomeIcon maps an entity outcome onto a styled icon.
func OutcomeIcon(outcome string) string {
	switch outcome {
	case "created", "updated":
		return PassStyle.Render(IconPass)
	case "skipped":
		return MutedStyle.Render(IconSkip)
	case "errored":
		return FailStyle.Render(IconFail)
	}
	return WarnStyle.Render(IconWarn)
}

// Row is a label and value in a summary block.
type Row struct {
	Label string
	Value int
	// Warn highlights a non-zero value.
	Warn bool
}

// RenderRows aligns labels and right-justifies counts.
func RenderRows(rows []Row) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r.Label))
	}
	var b strings.Builder
	for _, r := range rows {
		value := fmt.Sprintf("%6d", r.Value)
		if r.Warn && r.Value > 0 {
			value = WarnStyle.Render(value)
		}
		fmt.Fprintf(&b, "  %s %s\n", MutedStyle.Render(r.Label+strings.Repeat(" ", width-lipgloss.Width(r.Label))), value)
	}
	return b.String()
}
