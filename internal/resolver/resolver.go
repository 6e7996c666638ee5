// Package resolver maps raw link targets onto concrete entries or code
// locations.
//
// Resolution runs an ordered strategy pipeline: exact identity wins over
// path-based wins over human-readable wins over best-effort fuzzy. The first
// strategy to produce a result is terminal; in particular an ambiguous alias
// match does not fall through to fuzzy matching.
package resolver

import (
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/starford/cortex/internal/models"
	"github.com/starford/cortex/internal/storage"
)

// resolution is the outcome of one strategy attempt. It is internal working
// state; the resolved fields are copied onto the link itself.
type resolution struct {
	targetID       string
	targetResolved string
	status         models.LinkStatus
	strategy       string
}

type strategy struct {
	name string
	fn   func(models.Link, models.Entry) *resolution
}

// Resolver resolves every link in an entry set to a terminal status.
// All indices are built once at construction, not per link.
type Resolver struct {
	store  storage.Provider
	root   string
	logger *slog.Logger

	entries  []models.Entry
	byID     map[string]models.Entry
	pathToID map[string]string   // both workspace-relative and absolute renderings
	byAlias  map[string][]string // alias/title text -> entry IDs
	byNorm   map[string]string   // normalized text -> entry ID

	strategies []strategy
}

// New builds a Resolver over the complete entry set. Duplicate entry IDs are
// resolved last-write-wins, with a warning naming both files.
func New(store storage.Provider, root string, logger *slog.Logger, entries []models.Entry) *Resolver {
	r := &Resolver{
		store:    store,
		root:     root,
		logger:   logger,
		entries:  entries,
		byID:     make(map[string]models.Entry, len(entries)),
		pathToID: make(map[string]string, len(entries)*2),
		byAlias:  make(map[string][]string),
		byNorm:   make(map[string]string),
	}

	for _, e := range entries {
		if prev, ok := r.byID[e.ID]; ok {
			logger.Warn("resolver: duplicate entry id",
				slog.String("id", e.ID),
				slog.String("kept", e.FilePath),
				slog.String("shadowed", prev.FilePath))
		}
		r.byID[e.ID] = e

		rel := filepath.Clean(e.FilePath)
		r.pathToID[rel] = e.ID
		r.pathToID[filepath.Join(root, rel)] = e.ID

		r.addAlias(e.ID, e.ID)
		r.byNorm[normalize(e.ID)] = e.ID
		if e.Title != "" && e.Title != e.ID {
			r.addAlias(e.Title, e.ID)
			r.byNorm[normalize(e.Title)] = e.ID
		}
	}

	r.strategies = []strategy{
		{"direct_id", r.resolveDirectID},
		{"file_path", r.resolveFilePath},
		{"alias", r.resolveAlias},
		{"fuzzy", r.resolveFuzzy},
		{"code_reference", r.resolveCodeRef},
	}
	return r
}

func (r *Resolver) addAlias(alias, id string) {
	for _, existing := range r.byAlias[alias] {
		if existing == id {
			return
		}
	}
	r.byAlias[alias] = append(r.byAlias[alias], id)
}

// ResolveAll returns a new entry list whose links all carry a terminal
// status. Input entries are never mutated.
func (r *Resolver) ResolveAll() []models.Entry {
	out := make([]models.Entry, len(r.entries))
	for i, e := range r.entries {
		if len(e.Links) == 0 {
			out[i] = e
			continue
		}
		resolved := make([]models.Link, len(e.Links))
		for j, l := range e.Links {
			resolved[j] = r.resolve(l, e)
		}
		out[i] = e.WithLinks(resolved)
	}
	return out
}

// resolve runs the strategy pipeline for one link and returns the link with
// its terminal state filled in. Strategies run strictly in order; anything
// no strategy claims is Broken.
func (r *Resolver) resolve(link models.Link, src models.Entry) models.Link {
	for _, s := range r.strategies {
		if res := s.fn(link, src); res != nil {
			link.TargetID = res.targetID
			link.TargetResolved = res.targetResolved
			link.Status = res.status
			return link
		}
	}
	link.TargetID = ""
	link.TargetResolved = ""
	link.Status = models.LinkBroken
	return link
}

// resolveDirectID matches target_raw verbatim against an entry ID. Tried
// first for every link type.
func (r *Resolver) resolveDirectID(link models.Link, _ models.Entry) *resolution {
	e, ok := r.byID[link.TargetRaw]
	if !ok {
		return nil
	}
	return &resolution{targetID: e.ID, targetResolved: e.FilePath, status: models.LinkValid, strategy: "direct_id"}
}

// resolveFilePath maps a path-like target onto a known entry file. Anchors
// are stripped first. Source-relative candidates are only tried when the
// literal text starts with ./ or ../.
func (r *Resolver) resolveFilePath(link models.Link, src models.Entry) *resolution {
	if link.Type != models.LinkMarkdown && link.Type != models.LinkWikilink {
		return nil
	}
	target, _, _ := strings.Cut(link.TargetRaw, "#")
	if target == "" {
		return nil
	}

	var candidates []string
	if strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") {
		candidates = append(candidates, filepath.Join(filepath.Dir(src.FilePath), target))
	}
	candidates = append(candidates, filepath.Clean(target))

	for _, c := range candidates {
		if id, ok := r.pathToID[c]; ok {
			e := r.byID[id]
			return &resolution{targetID: id, targetResolved: e.FilePath, status: models.LinkValid, strategy: "file_path"}
		}
	}
	return nil
}

// resolveAlias matches the target against the alias/title index exactly.
// More than one owner makes the link Ambiguous, a terminal state of its own:
// a human has to disambiguate, so no further strategy runs.
func (r *Resolver) resolveAlias(link models.Link, _ models.Entry) *resolution {
	if link.Type != models.LinkWikilink && link.Type != models.LinkWikilinkAliased {
		return nil
	}
	ids := r.byAlias[link.TargetRaw]
	switch len(ids) {
	case 0:
		return nil
	case 1:
		e := r.byID[ids[0]]
		return &resolution{targetID: e.ID, targetResolved: e.FilePath, status: models.LinkValid, strategy: "alias"}
	default:
		return &resolution{status: models.LinkAmbiguous, strategy: "alias"}
	}
}

// resolveFuzzy is the last resort before a link counts as broken: the
// normalized target is looked up in the normalized-text index.
func (r *Resolver) resolveFuzzy(link models.Link, _ models.Entry) *resolution {
	norm := normalize(link.TargetRaw)
	if norm == "" {
		return nil
	}
	id, ok := r.byNorm[norm]
	if !ok {
		return nil
	}
	e := r.byID[id]
	return &resolution{targetID: e.ID, targetResolved: e.FilePath, status: models.LinkValid, strategy: "fuzzy"}
}

// resolveCodeRef resolves code:path::Symbol targets against the workspace
// file tree. Code locations are not graph nodes, so a hit carries no
// target_id.
func (r *Resolver) resolveCodeRef(link models.Link, src models.Entry) *resolution {
	if link.Type != models.LinkCodeReference {
		return nil
	}
	target := strings.TrimPrefix(link.TargetRaw, "code:")
	path, _, _ := strings.Cut(target, "::")
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	candidates := []string{
		filepath.Join(filepath.Dir(src.FilePath), path),
		filepath.Clean(path),
	}
	for _, c := range candidates {
		if r.store.Exists(c) {
			return &resolution{targetResolved: c, status: models.LinkValid, strategy: "code_reference"}
		}
	}
	return nil
}

var nonWordRe = regexp.MustCompile(`[^a-z0-9_]+`)

// normalize lowercases s and strips every non-word character, hyphens and
// spaces included, for fuzzy matching.
func normalize(s string) string {
	return nonWordRe.ReplaceAllString(strings.ToLower(s), "")
}
