package syncer

import (
	"regexp"
	"strings"
)

// goldenBlockRe matches one sentinel-delimited Golden Path block. Markers
// are case-insensitive and the block may span any number of lines.
var goldenBlockRe = regexp.MustCompile(`(?is)<!--\s*GOLDEN_PATH_START\s*-->.*?<!--\s*GOLDEN_PATH_END\s*-->`)

// Merge replaces a document's body with remote content while preserving the
// two regions a refresh must never touch: the frontmatter block stays
// byte-identical at the top, and every Golden Path block is carried to the
// end, byte-identical and in original order. Everything else is replaced
// outright; there is no diffing.
func Merge(local, remote string) string {
	fm := frontmatterBlock(local)
	golden := goldenBlockRe.FindAllString(local, -1)

	var sb strings.Builder
	if fm != "" {
		sb.WriteString(fm)
		sb.WriteString("\n")
	}
	sb.WriteString(strings.TrimRight(remote, " \t\r\n"))
	sb.WriteString("\n")
	if len(golden) > 0 {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(golden, "\n\n"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// frontmatterBlock returns the verbatim leading frontmatter region,
// delimiters and their trailing newline included, or "" when the document
// carries none. Blank lines before the opening delimiter are tolerated but
// not preserved.
func frontmatterBlock(doc string) string {
	const delim = "---"
	trimmed := strings.TrimLeft(doc, "\n\r")
	if !strings.HasPrefix(trimmed, delim) {
		return ""
	}

	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return ""
	}

	end := len(delim) + idx + 1 + len(delim)
	if end < len(trimmed) && trimmed[end] == '\r' {
		end++
	}
	if end < len(trimmed) && trimmed[end] == '\n' {
		end++
	}
	return trimmed[:end]
}
