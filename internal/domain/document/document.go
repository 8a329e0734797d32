package document

import (
	"fmt"
)

// Type classifies a document by the kind of fact it documents.
type Type string

// Document type constants.
const (
	TypeEndpoint Type = "endpoint"
	TypeEntity   Type = "entity"
	TypeService  Type = "service"
	TypeType     Type = "type"
	TypePage     Type = "page"
	TypeCustom   Type = "custom"
)

// IsValid checks if the type is one of the supported values.
func (t Type) IsValid() bool {
	switch t {
	case TypeEndpoint, TypeEntity, TypeService, TypeType, TypePage, TypeCustom:
		return true
	}
	return false
}

// Document is a single searchable documentation record (immutable value object).
// IDs are derived from stable identifying fields so the same logical entity maps
// to the same id across rebuilds.
type Document struct {
	id       string
	title    string
	content  string
	docType  Type
	path     string
	tags     []string
	metadata map[string]string
}

// New validates and creates a Document.
func New(
	id, title, content string, docType Type,
	path string, tags []string, metadata map[string]string,
) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if title == "" {
		return Document{}, fmt.Errorf("document title is required")
	}
	if !docType.IsValid() {
		return Document{}, fmt.Errorf("invalid document type %q", docType)
	}

	return Document{
		id:       id,
		title:    title,
		content:  content,
		docType:  docType,
		path:     path,
		tags:     cloneStrings(tags),
		metadata: cloneStringMap(metadata),
	}, nil
}

// Reconstruct creates a Document without validation (codec hydration).
func Reconstruct(
	id, title, content string, docType Type,
	path string, tags []string, metadata map[string]string,
) Document {
	return Document{
		id: id, title: title, content: content, docType: docType,
		path: path, tags: tags, metadata: metadata,
	}
}

// ID returns the stable document identifier.
func (d *Document) ID() string { return d.id }

// Title returns the display title.
func (d *Document) Title() string { return d.title }

// Content returns the flattened searchable text.
func (d *Document) Content() string { return d.content }

// Type returns the document classification.
func (d *Document) Type() Type { return d.docType }

// Path returns the source path the document was extracted from.
func (d *Document) Path() string { return d.path }

// Tags returns the ordered tag list.
func (d *Document) Tags() []string { return d.tags }

// Metadata returns the open key-value metadata map.
func (d *Document) Metadata() map[string]string { return d.metadata }

// HasTag reports whether the document carries the given tag.
func (d *Document) HasTag(tag string) bool {
	for _, t := range d.tags {
		if t == tag {
			return true
		}
	}
	return false
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
