package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/cortex/internal/apperr"
	"github.com/starford/cortex/internal/checksum"
	"github.com/starford/cortex/internal/models"
)

const (
	entryColumns = "id, title, status, tags, golden_paths, sources, file_path, content"
	linkColumns  = "source_id, target_raw, type, line, context, target_id, target_resolved, status"
)

// ReplaceAll commits a fresh pipeline snapshot, replacing whatever the
// previous run indexed, in a single transaction. Duplicate entry IDs
// collapse to the last occurrence, matching resolver semantics.
func (db *DB) ReplaceAll(entries []models.Entry) error {
	keep := make(map[string]int, len(entries))
	for i, e := range entries {
		keep[e.ID] = i
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM links`); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM entries`); err != nil {
		return fmt.Errorf("index: clear entries: %w", err)
	}

	entStmt, err := tx.Prepare(`
		INSERT INTO entries (id, title, status, tags, golden_paths, sources, file_path, content, checksum, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare entry insert: %w", err)
	}
	defer entStmt.Close()

	linkStmt, err := tx.Prepare(`
		INSERT INTO links (source_id, target_raw, type, line, context, target_id, target_resolved, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("index: prepare link insert: %w", err)
	}
	defer linkStmt.Close()

	now := time.Now().UTC()
	for i, e := range entries {
		if keep[e.ID] != i {
			continue
		}

		tagsJSON, _ := json.Marshal(orEmpty(e.Tags))
		goldenJSON, _ := json.Marshal(orEmpty(e.GoldenPaths))
		sourcesJSON, _ := json.Marshal(orEmpty(e.Sources))

		_, err = entStmt.Exec(e.ID, e.Title, string(e.Status),
			string(tagsJSON), string(goldenJSON), string(sourcesJSON),
			e.FilePath, e.CachedContent, checksum.Sum([]byte(e.CachedContent)), now)
		if err != nil {
			return fmt.Errorf("index: insert entry %q: %w", e.ID, err)
		}

		for _, l := range e.Links {
			_, err := linkStmt.Exec(l.SourceID, l.TargetRaw, string(l.Type),
				l.LineNumber, l.Context, l.TargetID, l.TargetResolved, string(l.Status))
			if err != nil {
				return fmt.Errorf("index: insert link %q -> %q: %w", l.SourceID, l.TargetRaw, err)
			}
		}
	}

	return tx.Commit()
}

// GetEntry returns one indexed entry with its outbound links attached.
// A missing ID reports apperr.ErrNotFound.
func (db *DB) GetEntry(id string) (*models.Entry, error) {
	row := db.conn.QueryRow(`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: entry %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get entry: %w", err)
	}

	links, err := db.linksFor(id)
	if err != nil {
		return nil, err
	}
	e.Links = links
	return &e, nil
}

// ListEntries returns one page of entries ordered by ID plus the total count
// for the active filter. Links are not attached; use GetEntry for the full
// record.
func (db *DB) ListEntries(limit, offset int, tag, status string) ([]models.Entry, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := "1=1"
	var args []any
	if tag != "" {
		where += " AND EXISTS (SELECT 1 FROM json_each(entries.tags) WHERE json_each.value = ?)"
		args = append(args, tag)
	}
	if status != "" {
		where += " AND status = ?"
		args = append(args, status)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM entries WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count entries: %w", err)
	}

	rows, err := db.conn.Query(
		`SELECT `+entryColumns+` FROM entries WHERE `+where+` ORDER BY id LIMIT ? OFFSET ?`,
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("index: scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// AllEntries returns every indexed entry ordered by ID, without links.
func (db *DB) AllEntries() ([]models.Entry, error) {
	rows, err := db.conn.Query(`SELECT ` + entryColumns + ` FROM entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("index: all entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("index: scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AllLinks returns every indexed link in source order.
func (db *DB) AllLinks() ([]models.Link, error) {
	rows, err := db.conn.Query(`SELECT ` + linkColumns + ` FROM links ORDER BY source_id, rowid`)
	if err != nil {
		return nil, fmt.Errorf("index: all links: %w", err)
	}
	defer rows.Close()
	return collectLinks(rows)
}

// Backlinks returns every valid link pointing at the given entry.
func (db *DB) Backlinks(targetID string) ([]models.Link, error) {
	rows, err := db.conn.Query(
		`SELECT `+linkColumns+` FROM links WHERE target_id = ? AND status = ? ORDER BY source_id, line`,
		targetID, string(models.LinkValid))
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()
	return collectLinks(rows)
}

// Checksums returns the stored content checksum for every entry, keyed by ID.
func (db *DB) Checksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, checksum FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("index: checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, cs string
		if err := rows.Scan(&id, &cs); err != nil {
			return nil, err
		}
		out[id] = cs
	}
	return out, rows.Err()
}

func (db *DB) linksFor(sourceID string) ([]models.Link, error) {
	rows, err := db.conn.Query(`SELECT `+linkColumns+` FROM links WHERE source_id = ? ORDER BY rowid`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("index: links for %q: %w", sourceID, err)
	}
	defer rows.Close()
	return collectLinks(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (models.Entry, error) {
	var e models.Entry
	var status, tags, golden, sources string
	err := s.Scan(&e.ID, &e.Title, &status, &tags, &golden, &sources, &e.FilePath, &e.CachedContent)
	if err != nil {
		return models.Entry{}, err
	}
	e.Status = models.EntryStatus(status)
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return models.Entry{}, fmt.Errorf("decode tags for %q: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(golden), &e.GoldenPaths); err != nil {
		return models.Entry{}, fmt.Errorf("decode golden_paths for %q: %w", e.ID, err)
	}
	if err := json.Unmarshal([]byte(sources), &e.Sources); err != nil {
		return models.Entry{}, fmt.Errorf("decode sources for %q: %w", e.ID, err)
	}
	return e, nil
}

func collectLinks(rows *sql.Rows) ([]models.Link, error) {
	var out []models.Link
	for rows.Next() {
		var l models.Link
		var typ, status string
		err := rows.Scan(&l.SourceID, &l.TargetRaw, &typ, &l.LineNumber, &l.Context, &l.TargetID, &l.TargetResolved, &status)
		if err != nil {
			return nil, err
		}
		l.Type = models.LinkType(typ)
		l.Status = models.LinkStatus(status)
		out = append(out, l)
	}
	return out, rows.Err()
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
