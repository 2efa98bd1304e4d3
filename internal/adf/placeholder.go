package adf

import (
	"fmt"
	"regexp"
	"strings"
)

// Placeholder tokens are HTML comments, so an unresolved token is invisible
// in the rendered page and cannot be produced by escaped text.
const (
	placeholderOpen  = "<!--ATTACH{"
	placeholderClose = "}-->"
)

var placeholderRE = regexp.MustCompile(`<!--ATTACH\{(.*?)\}-->`)

var unescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">")

// Placeholder returns the token standing in for the named artifact.
func Placeholder(filename string) string {
	return placeholderOpen + escape(filename) + placeholderClose
}

// Placeholders lists the filenames referenced by tokens in markup, in order
// of first appearance.
func Placeholders(markup string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderRE.FindAllStringSubmatch(markup, -1) {
		name := unescaper.Replace(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Substitute replaces each token whose filename is a key of refs with the
// mapped markup. Tokens with no entry are left intact. changed reports
// whether any token was replaced.
func Substitute(markup string, refs map[string]string) (out string, changed bool) {
	if len(refs) == 0 || !strings.Contains(markup, placeholderOpen) {
		return markup, false
	}
	out = placeholderRE.ReplaceAllStringFunc(markup, func(tok string) string {
		name := unescaper.Replace(tok[len(placeholderOpen) : len(tok)-len(placeholderClose)])
		ref, ok := refs[name]
		if !ok {
			return tok
		}
		changed = true
		return ref
	})
	return out, changed
}

// ArtifactMarkup is the inline reference to an uploaded artifact. Images are
// embedded; other files are linked.
func ArtifactMarkup(filename, href string, image bool) string {
	label := strings.NewReplacer("[", `\[`, "]", `\]`).Replace(escape(filename))
	if image {
		return fmt.Sprintf("![%s](%s)", label, linkTarget(href))
	}
	return fmt.Sprintf("[%s](%s)", label, linkTarget(href))
}
