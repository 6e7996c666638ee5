// Package analyzer extracts typed knowledge links from Markdown bodies.
//
// Each link syntax has its own matcher and the matchers run independently:
// one literal span may be captured under more than one rule (a code
// reference in wikilink brackets is also a plain wikilink). Deciding which
// interpretation holds is the resolver's job, not the analyzer's.
package analyzer

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/starford/cortex/internal/models"
)

// contextRadius is how many bytes of surrounding text are kept on each side
// of a match for diagnostics.
const contextRadius = 40

var (
	markdownRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)]+)\)`)
	wikilinkRe = regexp.MustCompile(`\[\[([^\[\]|]+)\]\]`)
	aliasRe    = regexp.MustCompile(`\[\[([^\[\]|]+)\|([^\[\]|]+)\]\]`)
	codeRe     = regexp.MustCompile(`\[\[code:([^\[\]|:]+)(?:::([^\[\]|]+))?\]\]`)
)

// Extract returns every link found in body, in matcher order, all with
// status Unresolved. The body is scanned once per matcher; no filesystem or
// network access happens here.
func Extract(sourceID, body string) []models.Link {
	if body == "" {
		return nil
	}
	offsets := lineOffsets(body)

	var out []models.Link
	add := func(typ models.LinkType, target string, start, end int) {
		target = strings.TrimSpace(target)
		if target == "" {
			return
		}
		out = append(out, models.Link{
			SourceID:   sourceID,
			TargetRaw:  target,
			Type:       typ,
			LineNumber: lineAt(offsets, start),
			Context:    contextWindow(body, start, end),
			Status:     models.LinkUnresolved,
		})
	}

	for _, m := range markdownRe.FindAllStringSubmatchIndex(body, -1) {
		target := strings.TrimSpace(body[m[4]:m[5]])
		// External URLs are not links into the knowledge graph.
		if isExternalURL(target) {
			continue
		}
		add(models.LinkMarkdown, target, m[0], m[1])
	}
	for _, m := range wikilinkRe.FindAllStringSubmatchIndex(body, -1) {
		add(models.LinkWikilink, body[m[2]:m[3]], m[0], m[1])
	}
	for _, m := range aliasRe.FindAllStringSubmatchIndex(body, -1) {
		add(models.LinkWikilinkAliased, body[m[2]:m[3]], m[0], m[1])
	}
	for _, m := range codeRe.FindAllStringSubmatchIndex(body, -1) {
		// TargetRaw keeps the code: prefix; the resolver strips it.
		add(models.LinkCodeReference, body[m[0]+2:m[1]-2], m[0], m[1])
	}
	return out
}

func isExternalURL(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// lineOffsets returns the byte offset of the start of every line.
func lineOffsets(body string) []int {
	offs := []int{0}
	for i := 0; i < len(body); i++ {
		if body[i] == '\n' {
			offs = append(offs, i+1)
		}
	}
	return offs
}

// lineAt converts a byte offset into a 1-based line number.
func lineAt(offs []int, pos int) int {
	return sort.Search(len(offs), func(i int) bool { return offs[i] > pos })
}

// contextWindow returns a short single-line snippet around [start, end)
// for human-readable diagnostics.
func contextWindow(body string, start, end int) string {
	lo := start - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + contextRadius
	if hi > len(body) {
		hi = len(body)
	}
	for lo > 0 && !utf8.RuneStart(body[lo]) {
		lo--
	}
	for hi < len(body) && !utf8.RuneStart(body[hi]) {
		hi++
	}
	snippet := strings.ReplaceAll(body[lo:hi], "\n", " ")
	return strings.TrimSpace(snippet)
}
