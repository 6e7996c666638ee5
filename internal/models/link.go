package models

// LinkType classifies the syntax a link was written in.
type LinkType string

// Link syntaxes recognized in document bodies.
const (
	LinkMarkdown        LinkType = "markdown"
	LinkWikilink        LinkType = "wikilink"
	LinkWikilinkAliased LinkType = "wikilink_aliased"
	LinkCodeReference   LinkType = "code_reference"
)

// LinkStatus is the resolution state of a link. A link is created
// unresolved and transitions exactly once to a terminal state; it is never
// re-resolved in place (resolution produces a new entry with a new link
// list).
type LinkStatus string

// Link resolution states.
const (
	LinkUnresolved LinkStatus = "unresolved"
	LinkValid      LinkStatus = "valid"
	LinkBroken     LinkStatus = "broken"
	LinkAmbiguous  LinkStatus = "ambiguous"
)

// Link is one occurrence of an outbound reference found in a document body.
// TargetRaw is the literal text inside the link syntax. TargetID is empty
// for code references and for links that did not resolve to an entry.
type Link struct {
	SourceID       string     `json:"source_id"`
	TargetRaw      string     `json:"target_raw"`
	Type           LinkType   `json:"type"`
	LineNumber     int        `json:"line_number"`
	Context        string     `json:"context,omitempty"`
	TargetID       string     `json:"target_id,omitempty"`
	TargetResolved string     `json:"target_resolved,omitempty"`
	Status         LinkStatus `json:"status"`
}

// IsValid reports whether the link resolved to a valid target.
func (l Link) IsValid() bool {
	return l.Status == LinkValid
}
