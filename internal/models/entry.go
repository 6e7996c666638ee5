// Package models defines the domain types for the Cortex knowledge graph.
//
// Entries, links, and sources are value objects: pipeline stages never
// mutate them in place. A stage that changes an entry builds a new value
// through one of the With* constructors, so every stage consumes a snapshot
// and emits a new snapshot.
package models

import "time"

// EntryStatus is the lifecycle state declared in a document's frontmatter.
type EntryStatus string

// Entry lifecycle states.
const (
	StatusDraft      EntryStatus = "draft"
	StatusActive     EntryStatus = "active"
	StatusDeprecated EntryStatus = "deprecated"
	StatusArchived   EntryStatus = "archived"
)

// Valid reports whether s is one of the closed set of entry statuses.
func (s EntryStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusDeprecated, StatusArchived:
		return true
	}
	return false
}

// Source is an external reference attached to an entry. It is replaced
// wholesale on each sync, never mutated.
type Source struct {
	URL        string     `json:"url"`
	ETag       string     `json:"etag,omitempty"`
	LastSynced *time.Time `json:"last_synced,omitempty"`
}

// Entry is one scanned knowledge document. ID is the join key for the whole
// graph. FilePath is local-machine metadata and is excluded from any
// serialized representation.
type Entry struct {
	ID            string      `json:"id"`
	Title         string      `json:"title,omitempty"`
	Status        EntryStatus `json:"status"`
	Tags          []string    `json:"tags"`
	GoldenPaths   []string    `json:"golden_paths"`
	Sources       []Source    `json:"sources"`
	CachedContent string      `json:"cached_content,omitempty"`
	Links         []Link      `json:"links"`
	FilePath      string      `json:"-"`
}

// WithLinks returns a copy of the entry with its link list replaced.
// The given slice is cloned so the new entry shares no backing storage
// with the caller.
func (e Entry) WithLinks(links []Link) Entry {
	e.Links = cloneSlice(links)
	return e
}

// WithSources returns a copy of the entry with its source list replaced.
func (e Entry) WithSources(sources []Source) Entry {
	e.Sources = cloneSlice(sources)
	return e
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
