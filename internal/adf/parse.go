package adf

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// rawNode is the wire form of an ADF node.
type rawNode struct {
	Type    string                 `json:"type"`
	Text    string                 `json:"text,omitempty"`
	Attrs   map[string]interface{} `json:"attrs,omitempty"`
	Content []rawNode              `json:"content,omitempty"`
	Marks   []rawMark              `json:"marks,omitempty"`
}

type rawMark struct {
	Type  string                 `json:"type"`
	Attrs map[string]interface{} `json:"attrs,omitempty"`
}

// Parse decodes a description or comment body. It never fails: an empty or
// null body yields nil, a JSON string or non-JSON input yields a single
// paragraph, and anything that is not an object degrades to its text form.
func Parse(raw json.RawMessage) Node {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return FromString(s)
	}

	var n rawNode
	if err := json.Unmarshal(trimmed, &n); err != nil || n.Type == "" {
		return FromString(string(trimmed))
	}
	return convert(n)
}

// FromString wraps plain text as a one-paragraph document.
func FromString(s string) Node {
	if s == "" {
		return nil
	}
	return Doc{Content: []Node{Paragraph{Content: []Node{Text{Text: s}}}}}
}

func convert(n rawNode) Node {
	children := convertAll(n.Content)

	switch n.Type {
	case "doc":
		return Doc{Content: children}
	case "paragraph":
		return Paragraph{Content: children}
	case "heading":
		return Heading{Level: attrInt(n.Attrs, "level"), Content: children}
	case "text":
		return Text{Text: n.Text, Marks: convertMarks(n.Marks)}
	case "hardBreak":
		return HardBreak{}
	case "rule":
		return Rule{}
	case "bulletList":
		return BulletList{Items: children}
	case "orderedList":
		return OrderedList{Start: attrInt(n.Attrs, "order"), Items: children}
	case "listItem":
		return ListItem{Content: children}
	case "codeBlock":
		return CodeBlock{Language: attrString(n.Attrs, "language"), Content: children}
	case "blockquote":
		return Blockquote{Content: children}
	case "panel":
		return Panel{PanelType: attrString(n.Attrs, "panelType"), Content: children}
	case "table":
		return Table{Rows: children}
	case "tableRow":
		return TableRow{Cells: children}
	case "tableHeader":
		return TableCell{Header: true, Content: children}
	case "tableCell":
		return TableCell{Content: children}
	case "mediaSingle", "mediaGroup":
		return MediaGroup{Content: children}
	case "media", "mediaInline":
		return Media{
			ID:       attrString(n.Attrs, "id"),
			Kind:     attrString(n.Attrs, "type"),
			Filename: attrString(n.Attrs, "alt"),
			URL:      attrString(n.Attrs, "url"),
		}
	case "mention":
		return Mention{AccountID: attrString(n.Attrs, "id"), Text: attrString(n.Attrs, "text")}
	case "emoji":
		return Emoji{ShortName: attrString(n.Attrs, "shortName"), Text: attrString(n.Attrs, "text")}
	case "inlineCard", "blockCard", "embedCard":
		return InlineCard{URL: attrString(n.Attrs, "url")}
	case "status":
		return Status{Text: attrString(n.Attrs, "text")}
	case "date":
		return Date{Timestamp: int64(attrInt(n.Attrs, "timestamp"))}
	default:
		return Unknown{Type: n.Type, Content: children}
	}
}

func convertAll(nodes []rawNode) []Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, convert(n))
	}
	return out
}

func convertMarks(marks []rawMark) []Mark {
	var out []Mark
	for _, m := range marks {
		switch MarkKind(m.Type) {
		case MarkStrong, MarkEm, MarkCode, MarkStrike, MarkUnderline:
			out = append(out, Mark{Kind: MarkKind(m.Type)})
		case MarkLink:
			out = append(out, Mark{Kind: MarkLink, Href: attrString(m.Attrs, "href")})
		}
		// textColor, subsup, etc. carry no markup
	}
	return out
}

func attrString(attrs map[string]interface{}, key string) string {
	switch v := attrs[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func attrInt(attrs map[string]interface{}, key string) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return 0
}
