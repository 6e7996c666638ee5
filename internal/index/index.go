package index

import "github.com/starford/cortex/internal/models"

// EntryIndex is the read-model surface the rest of the system depends on.
// Consumers should take this interface rather than the concrete *DB type so
// tests can substitute fakes.
type EntryIndex interface {
	ReplaceAll(entries []models.Entry) error
	GetEntry(id string) (*models.Entry, error)
	ListEntries(limit, offset int, tag, status string) ([]models.Entry, int, error)
	AllEntries() ([]models.Entry, error)
	AllLinks() ([]models.Link, error)
	Backlinks(targetID string) ([]models.Link, error)
	Checksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies EntryIndex at compile time.
var _ EntryIndex = (*DB)(nil)
