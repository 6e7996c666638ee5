// Package parser extracts YAML frontmatter from knowledge documents and
// validates it against the entry schema.
package parser

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/cortex/internal/apperr"
	"github.com/starford/cortex/internal/models"
)

// Document is the typed result of parsing one knowledge file. Nothing
// untyped crosses this boundary: callers get validated fields or an error.
type Document struct {
	ID          string
	Title       string
	Status      models.EntryStatus
	Tags        []string
	GoldenPaths []string
	Sources     []models.Source
	Body        string

	// Warnings collects non-fatal schema problems (dropped sources).
	// The caller decides where to log them.
	Warnings []string
}

// Parse validates raw Markdown bytes against the knowledge-entry schema.
// Required frontmatter fields are id and status; a document declaring
// type: knowledge must also carry a non-empty golden_paths (a structural
// violation, reported via apperr.ErrStructural).
func Parse(data []byte) (*Document, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	if fm == nil {
		return nil, fmt.Errorf("parser: missing frontmatter")
	}

	id := stringField(fm, "id")
	if id == "" {
		return nil, fmt.Errorf("parser: missing required field %q", "id")
	}

	rawStatus := strings.ToLower(strings.TrimSpace(stringField(fm, "status")))
	status := models.EntryStatus(rawStatus)
	if rawStatus == "" {
		return nil, fmt.Errorf("parser: missing required field %q", "status")
	}
	if !status.Valid() {
		return nil, fmt.Errorf("parser: invalid status %q", rawStatus)
	}

	doc := &Document{
		ID:          id,
		Status:      status,
		Tags:        stringList(fm["tags"]),
		GoldenPaths: stringList(fm["golden_paths"]),
		Body:        body,
	}
	doc.Title = deriveTitle(fm, body)
	doc.Sources = parseSources(fm["sources"], doc)

	if stringField(fm, "type") == "knowledge" && len(doc.GoldenPaths) == 0 {
		return nil, fmt.Errorf("parser: knowledge document %q has no golden_paths: %w", id, apperr.ErrStructural)
	}

	return doc, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. No frontmatter yields a nil map; malformed YAML is
// an error, not a fallback.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter; the document has no frontmatter block.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, "", fmt.Errorf("parser: invalid frontmatter: %w", err)
	}
	if fm == nil {
		fm = map[string]interface{}{}
	}

	return fm, body, nil
}

// parseSources validates each declared source independently. An invalid
// source is dropped with a warning on the document; it never invalidates
// the document itself.
func parseSources(raw interface{}, doc *Document) []models.Source {
	items, ok := raw.([]interface{})
	if !ok {
		if raw != nil {
			doc.Warnings = append(doc.Warnings, "sources is not a list; ignored")
		}
		return nil
	}

	var out []models.Source
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("source %d dropped: not a mapping", i))
			continue
		}
		src, err := parseSource(m)
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("source %d dropped: %v", i, err))
			continue
		}
		out = append(out, src)
	}
	return out
}

func parseSource(m map[string]interface{}) (models.Source, error) {
	rawURL := stringField(m, "url")
	if rawURL == "" {
		return models.Source{}, fmt.Errorf("missing url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return models.Source{}, fmt.Errorf("invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return models.Source{}, fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return models.Source{}, fmt.Errorf("url has no host")
	}

	src := models.Source{URL: rawURL, ETag: stringField(m, "etag")}

	switch v := m["last_synced"].(type) {
	case nil:
	case time.Time:
		t := v.UTC()
		src.LastSynced = &t
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return models.Source{}, fmt.Errorf("invalid last_synced: %v", err)
		}
		t = t.UTC()
		src.LastSynced = &t
	default:
		return models.Source{}, fmt.Errorf("invalid last_synced type %T", v)
	}

	return src, nil
}

// stringField returns the trimmed string value for key, or "" when absent
// or not a string.
func stringField(fm map[string]interface{}, key string) string {
	if v, ok := fm[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// stringList coerces a frontmatter value into a list of non-empty strings.
// A bare scalar becomes a one-element list.
func stringList(raw interface{}) []string {
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		add(v)
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the
// first H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if t := stringField(fm, "title"); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
