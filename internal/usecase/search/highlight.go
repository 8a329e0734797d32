package search

import (
	"sort"
	"strings"
)

// Snippet geometry: about 40 characters of context before the first match and
// 120 after, ellipsized when the field text is cut mid-way.
const (
	snippetBefore = 40
	snippetAfter  = 120
	ellipsis      = "..."
)

// Highlight field names.
const (
	FieldTitle   = "title"
	FieldContent = "content"
)

// Span is a (start, end) character offset pair of a matched term within the
// original field text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Highlight marks matched query terms within one result field.
type Highlight struct {
	Field     string `json:"field"`
	Snippet   string `json:"snippet"`
	Positions []Span `json:"positions"`
}

// extractHighlights computes highlights for the title and content fields
// independently. A field with no occurrences contributes no entry.
func extractHighlights(queryTokens []string, title, content string) []Highlight {
	var highlights []Highlight
	if h, ok := fieldHighlight(FieldTitle, title, queryTokens); ok {
		highlights = append(highlights, h)
	}
	if h, ok := fieldHighlight(FieldContent, content, queryTokens); ok {
		highlights = append(highlights, h)
	}
	return highlights
}

// fieldHighlight finds every literal case-insensitive occurrence of each query
// token in the field and builds one snippet centered on the first occurrence.
func fieldHighlight(field, text string, tokens []string) (Highlight, bool) {
	if text == "" || len(tokens) == 0 {
		return Highlight{}, false
	}

	lower := strings.ToLower(text)
	var spans []Span
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		for from := 0; ; {
			i := strings.Index(lower[from:], tok)
			if i < 0 {
				break
			}
			start := from + i
			spans = append(spans, Span{Start: start, End: start + len(tok)})
			from = start + len(tok)
		}
	}
	if len(spans) == 0 {
		return Highlight{}, false
	}

	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End < spans[j].End
	})

	return Highlight{
		Field:     field,
		Snippet:   snippetAround(text, spans[0].Start),
		Positions: spans,
	}, true
}

// snippetAround cuts the text around the first match offset.
func snippetAround(text string, at int) string {
	start := at - snippetBefore
	if start < 0 {
		start = 0
	}
	end := at + snippetAfter
	if end > len(text) {
		end = len(text)
	}

	snippet := text[start:end]
	if start > 0 {
		snippet = ellipsis + snippet
	}
	if end < len(text) {
		snippet += ellipsis
	}
	return snippet
}
