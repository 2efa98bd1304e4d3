// Package adf converts Atlassian Document Format trees into OpenProject markup.
//
// A document is parsed into a closed set of node types (the Node interface is
// sealed to this package) and rendered depth-first: children are rendered
// first, then wrapped by their parent. Media that reference an uploaded file
// render as placeholder tokens which are replaced once the file exists in the
// target system (see Substitute).
package adf

// Node is one structural unit of a document. Only types declared in this
// package implement it.
type Node interface {
	adfNode()
}

// Doc is the document root.
type Doc struct {
	Content []Node
}

// Paragraph holds inline content.
type Paragraph struct {
	Content []Node
}

// Heading is a section title. Level is 1-6; anything else renders as 1.
type Heading struct {
	Level   int
	Content []Node
}

// Text is a run of characters with formatting marks applied in order.
type Text struct {
	Text  string
	Marks []Mark
}

// HardBreak is a forced line break inside a block.
type HardBreak struct{}

// Rule is a horizontal rule.
type Rule struct{}

// BulletList is an unordered list of ListItem nodes.
type BulletList struct {
	Items []Node
}

// OrderedList is a numbered list starting at Start.
type OrderedList struct {
	Start int
	Items []Node
}

// ListItem holds the blocks of one list entry.
type ListItem struct {
	Content []Node
}

// CodeBlock is preformatted text with an optional language.
type CodeBlock struct {
	Language string
	Content  []Node
}

// Blockquote quotes its blocks.
type Blockquote struct {
	Content []Node
}

// Panel is an info/note/warning box.
type Panel struct {
	PanelType string
	Content   []Node
}

// Table is a grid of TableRow nodes. The first row is the header row.
type Table struct {
	Rows []Node
}

// TableRow holds TableCell nodes.
type TableRow struct {
	Cells []Node
}

// TableCell holds the blocks of one cell.
type TableCell struct {
	Header  bool
	Content []Node
}

// MediaGroup wraps one or more Media nodes.
type MediaGroup struct {
	Content []Node
}

// Media references an artifact. File media carry the artifact's filename and
// render as a placeholder; external media carry a URL and render inline.
type Media struct {
	ID       string
	Kind     string // "file" or "external"
	Filename string
	URL      string
}

// Mention references a user by display text.
type Mention struct {
	AccountID string
	Text      string
}

// Emoji renders its text form, falling back to the short name.
type Emoji struct {
	ShortName string
	Text      string
}

// InlineCard is a smart link to a URL.
type InlineCard struct {
	URL string
}

// Status is a colored status lozenge.
type Status struct {
	Text string
}

// Date is a date lozenge; Timestamp is milliseconds since the epoch.
type Date struct {
	Timestamp int64
}

// Unknown is any node type outside the recognized vocabulary. Only its
// children are rendered.
type Unknown struct {
	Type    string
	Content []Node
}

func (Doc) adfNode()         {}
func (Paragraph) adfNode()   {}
func (Heading) adfNode()     {}
func (Text) adfNode()        {}
func (HardBreak) adfNode()   {}
func (Rule) adfNode()        {}
func (BulletList) adfNode()  {}
func (OrderedList) adfNode() {}
func (ListItem) adfNode()    {}
func (CodeBlock) adfNode()   {}
func (Blockquote) adfNode()  {}
func (Panel) adfNode()       {}
func (Table) adfNode()       {}
func (TableRow) adfNode()    {}
func (TableCell) adfNode()   {}
func (MediaGroup) adfNode()  {}
func (Media) adfNode()       {}
func (Mention) adfNode()     {}
func (Emoji) adfNode()       {}
func (InlineCard) adfNode()  {}
func (Status) adfNode()      {}
func (Date) adfNode()        {}
func (Unknown) adfNode()     {}

// MarkKind is a text formatting mark.
type MarkKind string

const (
	MarkStrong    MarkKind = "strong"
	MarkEm        MarkKind = "em"
	MarkCode      MarkKind = "code"
	MarkStrike    MarkKind = "strike"
	MarkUnderline MarkKind = "underline"
	MarkLink      MarkKind = "link"
)

// Mark is one formatting mark. Href is set for links.
type Mark struct {
	Kind MarkKind
	Href string
}
