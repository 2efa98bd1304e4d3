package adf

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstitute(t *testing.T) {
	body := Render(Doc{Content: []Node{
		Paragraph{Content: []Node{Text{Text: "See below"}}},
		MediaGroup{Content: []Node{Media{Kind: "file", Filename: "diagram.png"}}},
	}})
	assert.Equal(t, "See below\n\n<!--ATTACH{diagram.png}-->", body)

	t.Run("matching artifact", func(t *testing.T) {
		ref := ArtifactMarkup("diagram.png", "/api/v3/attachments/7/content", true)
		out, changed := Substitute(body, map[string]string{"diagram.png": ref})
		assert.True(t, changed)
		assert.Equal(t, "See below\n\n![diagram.png](/api/v3/attachments/7/content)", out)
	})

	t.Run("no uploaded artifact is a no-op", func(t *testing.T) {
		out, changed := Substitute(body, map[string]string{"other.png": "X"})
		assert.False(t, changed)
		assert.Equal(t, body, out)
	})

	t.Run("empty table", func(t *testing.T) {
		out, changed := Substitute(body, nil)
		assert.False(t, changed)
		assert.Equal(t, body, out)
	})

	t.Run("partial match leaves the rest", func(t *testing.T) {
		in := Placeholder("a.txt") + " " + Placeholder("b.txt")
		out, changed := Substitute(in, map[string]string{"b.txt": "B"})
		assert.True(t, changed)
		assert.Equal(t, "<!--ATTACH{a.txt}--> B", out)
	})
}

func TestPlaceholderEscaping(t *testing.T) {
	name := "odd <name>}.log"
	tok := Placeholder(name)
	assert.Equal(t, "<!--ATTACH{odd &lt;name&gt;}.log}-->", tok)
	assert.Equal(t, []string{name}, Placeholders(tok))

	out, changed := Substitute(tok, map[string]string{name: "ok"})
	assert.True(t, changed)
	assert.Equal(t, "ok", out)
}

func TestPlaceholderIsNotOrdinaryText(t *testing.T) {
	// A user typing the token literally gets it escaped, so it never matches.
	body := Render(Paragraph{Content: []Node{Text{Text: "<!--ATTACH{diagram.png}-->"}}})
	assert.Empty(t, Placeholders(body))
	out, changed := Substitute(body, map[string]string{"diagram.png": "X"})
	assert.False(t, changed)
	assert.Equal(t, body, out)
}

func TestRawTextCannotFormPlaceholder(t *testing.T) {
	refs := map[string]string{"diagram.png": "![diagram.png](/api/v3/attachments/9/content)"}
	tests := []struct {
		name string
		raw  string
	}{
		{"code block", `{"type":"doc","content":[{"type":"codeBlock","content":[{"type":"text","text":"<!--ATTACH{diagram.png}-->"}]}]}`},
		{"emoji text", `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"emoji","attrs":{"shortName":":x:","text":"<!--ATTACH{diagram.png}-->"}}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := Convert(json.RawMessage(tt.raw))
			assert.Empty(t, Placeholders(body))
			out, changed := Substitute(body, refs)
			assert.False(t, changed)
			assert.Equal(t, body, out)
		})
	}
}

func TestPlaceholdersDeduplicates(t *testing.T) {
	in := Placeholder("a.png") + Placeholder("b.png") + Placeholder("a.png")
	assert.Equal(t, []string{"a.png", "b.png"}, Placeholders(in))
}

func TestArtifactMarkup(t *testing.T) {
	assert.Equal(t, "![shot.png](/a/1/content)", ArtifactMarkup("shot.png", "/a/1/content", true))
	assert.Equal(t, "[notes \\[v2\\].pdf](/a/2/content)", ArtifactMarkup("notes [v2].pdf", "/a/2/content", false))
}
