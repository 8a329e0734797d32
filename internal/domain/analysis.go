package domain

// AnalysisResult is the structured output of the repository analyzer: the flat
// record sets the index is built from. The analyzer owns the shape; this core
// only reads it.
type AnalysisResult struct {
	Endpoints []Endpoint `json:"endpoints,omitempty"`
	Entities  []Entity   `json:"entities,omitempty"`
	Services  []Service  `json:"services,omitempty"`
	Types     []TypeDecl `json:"types,omitempty"`
	Pages     []Page     `json:"pages,omitempty"`
}

// Endpoint is an extracted API route.
type Endpoint struct {
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Handler     string   `json:"handler"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Returns     string   `json:"returns,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Entity is an extracted data entity (table, model, schema).
type Entity struct {
	Name        string        `json:"name"`
	Source      string        `json:"source"`
	Description string        `json:"description,omitempty"`
	Fields      []EntityField `json:"fields,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
}

// EntityField is a single column or attribute of an entity.
type EntityField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Service is an extracted service or controller class.
type Service struct {
	Name        string   `json:"name"`
	Source      string   `json:"source"`
	Description string   `json:"description,omitempty"`
	Operations  []string `json:"operations,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// TypeDecl is an extracted type declaration (struct, enum, interface).
type TypeDecl struct {
	Name        string        `json:"name"`
	Kind        string        `json:"kind"`
	Source      string        `json:"source"`
	Description string        `json:"description,omitempty"`
	Fields      []EntityField `json:"fields,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
}

// Page is free-form documentation content (README sections, guides).
type Page struct {
	Title   string   `json:"title"`
	Path    string   `json:"path"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}
