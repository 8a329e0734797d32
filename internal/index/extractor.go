package index

import (
	"strings"

	"github.com/docdex/docdex/internal/domain"
	"github.com/docdex/docdex/internal/domain/document"
)

// ExtractCorpus flattens an analysis result into searchable documents, in a
// fixed record order (endpoints, entities, services, types, pages). Both the
// synthesized ids and content are deterministic: re-extraction of unchanged
// input is byte-identical, which keeps embedding reuse and result identity
// stable across rebuilds.
func ExtractCorpus(analysis *domain.AnalysisResult) []document.Document {
	docs := make([]document.Document, 0,
		len(analysis.Endpoints)+len(analysis.Entities)+
			len(analysis.Services)+len(analysis.Types)+len(analysis.Pages))

	for _, ep := range analysis.Endpoints {
		docs = append(docs, extractEndpoint(ep))
	}
	for _, en := range analysis.Entities {
		docs = append(docs, extractEntity(en))
	}
	for _, sv := range analysis.Services {
		docs = append(docs, extractService(sv))
	}
	for _, ty := range analysis.Types {
		docs = append(docs, extractType(ty))
	}
	for _, pg := range analysis.Pages {
		docs = append(docs, extractPage(pg))
	}

	return docs
}

func extractEndpoint(ep domain.Endpoint) document.Document {
	name := ep.Name
	if name == "" {
		name = ep.Method + " " + ep.Path
	}
	content := joinParts(
		ep.Description,
		ep.Method+" "+ep.Path,
		ep.Handler,
		ep.Returns,
		strings.Join(ep.Tags, " "),
	)
	return document.Reconstruct(
		"ep:"+ep.Handler+":"+name, name, content,
		document.TypeEndpoint, ep.Path, ep.Tags, nil,
	)
}

func extractEntity(en domain.Entity) document.Document {
	content := joinParts(
		en.Description,
		fieldList(en.Fields),
		en.Source,
		strings.Join(en.Tags, " "),
	)
	return document.Reconstruct(
		"en:"+en.Source+":"+en.Name, en.Name, content,
		document.TypeEntity, en.Source, en.Tags, nil,
	)
}

func extractService(sv domain.Service) document.Document {
	content := joinParts(
		sv.Description,
		strings.Join(sv.Operations, " "),
		sv.Source,
		strings.Join(sv.Tags, " "),
	)
	return document.Reconstruct(
		"sv:"+sv.Source+":"+sv.Name, sv.Name, content,
		document.TypeService, sv.Source, sv.Tags, nil,
	)
}

func extractType(ty domain.TypeDecl) document.Document {
	content := joinParts(
		ty.Description,
		ty.Kind,
		fieldList(ty.Fields),
		ty.Source,
		strings.Join(ty.Tags, " "),
	)
	return document.Reconstruct(
		"ty:"+ty.Source+":"+ty.Name, ty.Name, content,
		document.TypeType, ty.Source, ty.Tags, nil,
	)
}

func extractPage(pg domain.Page) document.Document {
	content := joinParts(
		pg.Content,
		strings.Join(pg.Tags, " "),
	)
	return document.Reconstruct(
		"pg:"+pg.Path, pg.Title, content,
		document.TypePage, pg.Path, pg.Tags, nil,
	)
}

// fieldList renders "name type" pairs in declaration order.
func fieldList(fields []domain.EntityField) string {
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = strings.TrimSpace(f.Name + " " + f.Type)
	}
	return strings.Join(parts, " ")
}

// joinParts concatenates non-empty parts with newlines, in the given order.
func joinParts(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
