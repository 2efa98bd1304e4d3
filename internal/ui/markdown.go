package ui

import (
	"charm.land/glamour/v2"
	"github.com/charmbracelet/lipgloss"
)

// maxReadableWidth caps the wrap width of rendered markdown.
const maxReadableWidth = 100

// RenderMarkdown renders markdown for the terminal. It returns the input
// unchanged when colors are off or rendering fails.
func RenderMarkdown(markdown string) string {
	if !ShouldUseColor() {
		return markdown
	}
	style := "light"
	if lipgloss.HasDarkBackground() {
		style = "dark"
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(min(Width(80), maxReadableWidth)),
	)
	if err != nil {
		return markdown
	}
	rendered, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return rendered
}
