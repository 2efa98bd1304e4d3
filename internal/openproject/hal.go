// Package openproject writes work packages, relations, attachments,
// comments and watchers through the OpenProject API v3.
package openproject

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const apiPrefix = "/api/v3"

// Link is a HAL link.
type Link struct {
	Href  *string `json:"href"`
	Title string  `json:"title,omitempty"`
}

func hrefTo(kind string, id int) Link {
	h := fmt.Sprintf("%s/%s/%d", apiPrefix, kind, id)
	return Link{Href: &h}
}

// idFromHref returns the trailing numeric segment of an href, or 0.
func idFromHref(l *Link) int {
	if l == nil || l.Href == nil {
		return 0
	}
	h := strings.TrimSuffix(*l.Href, "/")
	idx := strings.LastIndex(h, "/")
	id, err := strconv.Atoi(h[idx+1:])
	if err != nil {
		return 0
	}
	return id
}

// Formattable is a rich text value.
type Formattable struct {
	Format string `json:"format,omitempty"`
	Raw    string `json:"raw"`
	HTML   string `json:"html,omitempty"`
}

func markdown(raw string) *Formattable {
	return &Formattable{Format: "markdown", Raw: raw}
}

// Collection is a HAL collection page.
type Collection[T any] struct {
	Total    int `json:"total"`
	Count    int `json:"count"`
	PageSize int `json:"pageSize"`
	Offset   int `json:"offset"`
	Embedded struct {
		Elements []T `json:"elements"`
	} `json:"_embedded"`
}

// WorkPackage is the HAL form of a work package. Custom fields are read
// from Extra since their names depend on the installation.
type WorkPackage struct {
	ID          int          `json:"id"`
	LockVersion int          `json:"lockVersion"`
	Subject     string       `json:"subject"`
	Description *Formattable `json:"description"`
	Links       struct {
		Type     *Link `json:"type"`
		Status   *Link `json:"status"`
		Priority *Link `json:"priority"`
		Parent   *Link `json:"parent"`
	} `json:"_links"`

	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (w *WorkPackage) UnmarshalJSON(data []byte) error {
	type plain WorkPackage
	if err := json.Unmarshal(data, (*plain)(w)); err != nil {
		return err
	}
	return json.Unmarshal(data, &w.Extra)
}

// customString returns a string custom field value.
func (w *WorkPackage) customString(field string) string {
	raw, ok := w.Extra[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// VocabularyElement is a type, status or priority.
type VocabularyElement struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
	Position  int    `json:"position"`
}

// Relation is a non-hierarchical relation between two work packages.
type Relation struct {
	ID    int    `json:"id,omitempty"`
	Type  string `json:"type"`
	Links struct {
		From *Link `json:"from,omitempty"`
		To   *Link `json:"to"`
	} `json:"_links"`
}

// Attachment is a stored file.
type Attachment struct {
	ID       int    `json:"id"`
	FileName string `json:"fileName"`
	Links    struct {
		DownloadLocation *Link `json:"downloadLocation"`
	} `json:"_links"`
}

// Activity is one journal entry.
type Activity struct {
	ID      int          `json:"id"`
	Type    string       `json:"_type"`
	Comment *Formattable `json:"comment"`
}

// ErrorResponse is the HAL error body.
type ErrorResponse struct {
	Type            string `json:"_type"`
	ErrorIdentifier string `json:"errorIdentifier"`
	Message         string `json:"message"`
	Embedded        struct {
		Errors  []ErrorResponse `json:"errors"`
		Details struct {
			Attribute string `json:"attribute"`
		} `json:"details"`
	} `json:"_embedded"`
}

// messages flattens a single or multiple error body.
func (e *ErrorResponse) messages() []string {
	out := []string{e.Message}
	for _, sub := range e.Embedded.Errors {
		out = append(out, sub.messages()...)
	}
	return out
}

// condition is one filter predicate.
type condition struct {
	Operator string   `json:"operator"`
	Values   []string `json:"values"`
}

// filter is one entry of a filters query parameter.
type filter map[string]condition

func where(name, operator string, values ...string) filter {
	if values == nil {
		values = []string{}
	}
	return filter{name: {Operator: operator, Values: values}}
}

func encodeFilters(fs ...filter) string {
	data, _ := json.Marshal(fs)
	return string(data)
}
