package adf

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Render converts a node tree to markup. A nil node renders as "".
func Render(n Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimRight(render(n), "\n")
}

// Convert parses a raw body and renders it.
func Convert(raw json.RawMessage) string {
	return Render(Parse(raw))
}

func render(n Node) string {
	switch n := n.(type) {
	case Doc:
		return renderBlocks(n.Content, "\n\n")
	case Paragraph:
		return renderInline(n.Content)
	case Heading:
		level := n.Level
		if level < 1 || level > 6 {
			level = 1
		}
		return strings.Repeat("#", level) + " " + renderInline(n.Content)
	case Text:
		return renderText(n)
	case HardBreak:
		return "<br>"
	case Rule:
		return "---"
	case BulletList:
		return renderList(n.Items, func(int) string { return "- " })
	case OrderedList:
		start := n.Start
		if start < 1 {
			start = 1
		}
		return renderList(n.Items, func(i int) string { return strconv.Itoa(start+i) + ". " })
	case ListItem:
		return renderBlocks(n.Content, "\n")
	case CodeBlock:
		return renderCode(n)
	case Blockquote:
		return quote(renderBlocks(n.Content, "\n\n"))
	case Panel:
		return quote(renderBlocks(n.Content, "\n\n"))
	case Table:
		return renderTable(n)
	case TableRow:
		return renderRow(n)
	case TableCell:
		return renderCell(n)
	case MediaGroup:
		return renderBlocks(n.Content, "\n")
	case Media:
		return renderMedia(n)
	case Mention:
		name := n.Text
		if name == "" {
			name = n.AccountID
		}
		return "@" + escape(strings.TrimPrefix(name, "@"))
	case Emoji:
		if n.Text != "" {
			return escape(n.Text)
		}
		return escape(n.ShortName)
	case InlineCard:
		if n.URL == "" {
			return ""
		}
		return fmt.Sprintf("[%s](%s)", escape(n.URL), linkTarget(n.URL))
	case Status:
		if n.Text == "" {
			return ""
		}
		return "[" + escape(n.Text) + "]"
	case Date:
		if n.Timestamp == 0 {
			return ""
		}
		return time.UnixMilli(n.Timestamp).UTC().Format("2006-01-02")
	case Unknown:
		return renderInline(n.Content)
	default:
		return ""
	}
}

// renderBlocks renders children and joins the non-empty results.
func renderBlocks(nodes []Node, sep string) string {
	parts := make([]string, 0, len(nodes))
	for _, c := range nodes {
		if s := render(c); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func renderInline(nodes []Node) string {
	var sb strings.Builder
	for _, c := range nodes {
		sb.WriteString(render(c))
	}
	return sb.String()
}

// renderText escapes first, then wraps with each mark in declared order.
func renderText(t Text) string {
	s := escape(t.Text)
	if s == "" {
		return ""
	}
	for _, m := range t.Marks {
		switch m.Kind {
		case MarkStrong:
			s = "**" + s + "**"
		case MarkEm:
			s = "*" + s + "*"
		case MarkCode:
			s = "<code>" + s + "</code>"
		case MarkStrike:
			s = "~~" + s + "~~"
		case MarkUnderline:
			s = "<u>" + s + "</u>"
		case MarkLink:
			if m.Href != "" {
				s = "[" + s + "](" + linkTarget(m.Href) + ")"
			}
		}
	}
	return s
}

func renderList(items []Node, prefix func(int) string) string {
	var lines []string
	i := 0
	for _, item := range items {
		body := render(item)
		if body == "" {
			continue
		}
		p := prefix(i)
		indent := strings.Repeat(" ", len(p))
		for j, line := range strings.Split(body, "\n") {
			switch {
			case j == 0:
				lines = append(lines, p+line)
			case line == "":
				lines = append(lines, "")
			default:
				lines = append(lines, indent+line)
			}
		}
		i++
	}
	return strings.Join(lines, "\n")
}

// renderCode emits a fenced block. Fenced content is shown literally, so the
// text is not escaped; comment openers are broken instead so code can never
// form a placeholder or a comment marker.
func renderCode(c CodeBlock) string {
	var sb strings.Builder
	for _, child := range c.Content {
		if t, ok := child.(Text); ok {
			sb.WriteString(literal(t.Text))
		} else {
			sb.WriteString(render(child))
		}
	}
	body := sb.String()
	fence := "```"
	for strings.Contains(body, fence) {
		fence += "`"
	}
	return fence + c.Language + "\n" + strings.TrimRight(body, "\n") + "\n" + fence
}

func quote(body string) string {
	if body == "" {
		return ""
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
		} else {
			lines[i] = "> " + line
		}
	}
	return strings.Join(lines, "\n")
}

// renderTable treats the first non-empty row as the header.
func renderTable(t Table) string {
	var rows []string
	for _, r := range t.Rows {
		row := render(r)
		if row == "" {
			continue
		}
		rows = append(rows, row)
		if len(rows) == 1 {
			cols := 1
			if tr, ok := r.(TableRow); ok && len(tr.Cells) > 0 {
				cols = len(tr.Cells)
			}
			rows = append(rows, "|"+strings.Repeat(" --- |", cols))
		}
	}
	return strings.Join(rows, "\n")
}

func renderRow(r TableRow) string {
	if len(r.Cells) == 0 {
		return ""
	}
	cells := make([]string, 0, len(r.Cells))
	for _, c := range r.Cells {
		cells = append(cells, render(c))
	}
	return "| " + strings.Join(cells, " | ") + " |"
}

func renderCell(c TableCell) string {
	s := renderBlocks(c.Content, "<br>")
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", "<br>")
}

func renderMedia(m Media) string {
	if m.Kind == "external" && m.URL != "" {
		return fmt.Sprintf("![%s](%s)", escape(m.Filename), linkTarget(m.URL))
	}
	if m.Filename == "" {
		return ""
	}
	return Placeholder(m.Filename)
}

var escaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// escape neutralizes the two characters that open and close inline HTML.
func escape(s string) string {
	return escaper.Replace(s)
}

// Escape is escape for callers composing markup around converted text.
func Escape(s string) string {
	return escape(s)
}

// literalBreaker splits "<!--" with a zero-width space. The text still reads
// the same inside a code block but no longer opens an HTML comment.
var literalBreaker = strings.NewReplacer("<!--", "<!-\u200b-")

func literal(s string) string {
	return literalBreaker.Replace(s)
}

var linkEscaper = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "<", "%3C", ">", "%3E")

func linkTarget(href string) string {
	return linkEscaper.Replace(href)
}
