// Package registry loads startup listing documents from a catalog directory
// and reports per-listing validation results.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperengineering/startupshop/internal/types"
	"github.com/hyperengineering/startupshop/internal/validation"
)

// IndexFile is the catalog index path relative to the catalog root.
const IndexFile = "index.yaml"

// ErrInvalidPath is returned when an index entry points outside the catalog root.
var ErrInvalidPath = errors.New("invalid listing path")

// LoadResult holds the valid listings and the validation outcome of every
// index entry, both in index order.
type LoadResult struct {
	Listings    []types.StartupListing
	Validations []types.ListingValidation
}

// Registry reads the catalog index and its listing documents.
type Registry struct {
	fsys      fs.FS
	validator validation.Validator
}

// New creates a Registry over the catalog root fsys.
func New(fsys fs.FS, validator validation.Validator) *Registry {
	return &Registry{fsys: fsys, validator: validator}
}

type indexDocument struct {
	Listings []types.IndexEntry `yaml:"listings"`
}

// Load reads every listing named by the index. A missing document or
// malformed YAML fails the whole load; an invalid listing is reported in
// Validations and left out of Listings.
func (r *Registry) Load(ctx context.Context) (*LoadResult, error) {
	raw, err := fs.ReadFile(r.fsys, IndexFile)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	var index indexDocument
	if err := yaml.Unmarshal(raw, &index); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}

	result := &LoadResult{
		Listings:    make([]types.StartupListing, 0, len(index.Listings)),
		Validations: make([]types.ListingValidation, 0, len(index.Listings)),
	}
	seen := make(map[string]struct{}, len(index.Listings))

	for _, entry := range index.Listings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		listing, errs, err := r.loadListing(entry)
		if err != nil {
			return nil, err
		}

		if _, dup := seen[entry.StartupID]; dup {
			errs = append(errs, "duplicate startup_id in index")
		}
		seen[entry.StartupID] = struct{}{}

		valid := len(errs) == 0
		if errs == nil {
			errs = []string{}
		}
		result.Validations = append(result.Validations, types.ListingValidation{
			StartupID: entry.StartupID,
			Path:      entry.Path,
			Valid:     valid,
			Errors:    errs,
		})

		if !valid {
			slog.Warn("invalid listing",
				"component", "registry",
				"startup_id", entry.StartupID,
				"path", entry.Path,
				"errors", len(errs),
			)
			continue
		}
		result.Listings = append(result.Listings, *listing)
	}

	return result, nil
}

// loadListing reads, normalizes and validates one document. The listing is
// nil when validation errors were found.
func (r *Registry) loadListing(entry types.IndexEntry) (*types.StartupListing, []string, error) {
	p, err := cleanPath(entry.Path)
	if err != nil {
		return nil, nil, err
	}

	raw, err := fs.ReadFile(r.fsys, p)
	if err != nil {
		return nil, nil, fmt.Errorf("read listing %s: %w", entry.Path, err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, nil, fmt.Errorf("parse listing %s: %w", entry.Path, err)
	}
	stringifyTimestamps(&node)

	var doc any
	if node.Kind != 0 {
		if err := node.Decode(&doc); err != nil {
			return nil, nil, fmt.Errorf("parse listing %s: %w", entry.Path, err)
		}
	}
	if m, ok := doc.(map[string]any); ok {
		trimDocument(m)
	}

	var errs []string
	result := r.validator.Validate(validation.ListingSchema, doc)
	if !result.Valid {
		errs = append(errs, result.Messages()...)
	}

	docID := ""
	if m, ok := doc.(map[string]any); ok {
		docID, _ = m["startup_id"].(string)
	}
	if docID != entry.StartupID {
		errs = append(errs, fmt.Sprintf("startup_id mismatch: index has '%s' but listing has '%s'", entry.StartupID, docID))
	}

	if len(errs) > 0 {
		return nil, errs, nil
	}

	var listing types.StartupListing
	if err := node.Decode(&listing); err != nil {
		return nil, nil, fmt.Errorf("decode listing %s: %w", entry.Path, err)
	}
	normalize(&listing)
	return &listing, nil, nil
}

func cleanPath(p string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(strings.TrimSpace(p), "./"))
	if !fs.ValidPath(cleaned) || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}

// stringifyTimestamps keeps date-like scalars as the text written in the document.
func stringifyTimestamps(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		stringifyTimestamps(c)
	}
}

func trimDocument(doc map[string]any) {
	trimField(doc, "startup_id")
	if identity, ok := doc["identity"].(map[string]any); ok {
		for _, k := range []string{"name", "category", "summary", "website"} {
			trimField(identity, k)
		}
	}
	if tech, ok := doc["tech"].(map[string]any); ok {
		trimList(tech, "stack")
	}
	trimList(doc, "risks")
}

func trimField(m map[string]any, key string) {
	if s, ok := m[key].(string); ok {
		m[key] = strings.TrimSpace(s)
	}
}

func trimList(m map[string]any, key string) {
	list, ok := m[key].([]any)
	if !ok {
		return
	}
	for i, v := range list {
		if s, ok := v.(string); ok {
			list[i] = strings.TrimSpace(s)
		}
	}
}

func normalize(l *types.StartupListing) {
	l.StartupID = strings.TrimSpace(l.StartupID)
	l.Identity.Name = strings.TrimSpace(l.Identity.Name)
	l.Identity.Category = strings.TrimSpace(l.Identity.Category)
	l.Identity.Summary = strings.TrimSpace(l.Identity.Summary)
	l.Identity.Website = strings.TrimSpace(l.Identity.Website)
	for i := range l.Risks {
		l.Risks[i] = strings.TrimSpace(l.Risks[i])
	}
	for i := range l.Tech.Stack {
		l.Tech.Stack[i] = strings.TrimSpace(l.Tech.Stack[i])
	}
	if l.Risks == nil {
		l.Risks = []string{}
	}
	if l.Tech.Stack == nil {
		l.Tech.Stack = []string{}
	}
}
