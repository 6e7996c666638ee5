package mcpserver

// EntryFormatContract describes the canonical Markdown entry format that
// LLM consumers should follow when authoring knowledge documents.
const EntryFormatContract = `# Cortex Knowledge Entry Format

Every Markdown document under docs/knowledge/ MUST follow this structure.

## Structure

` + "```" + `markdown
---
id: kno-042                         # REQUIRED - unique, stable; the graph join key
status: active                      # REQUIRED - draft | active | deprecated | archived
title: Human-readable title         # OPTIONAL - falls back to the first # heading
tags:                               # OPTIONAL - YAML list; used for filtering
  - runbook
  - payments
type: knowledge                     # OPTIONAL - declaring it makes golden_paths mandatory
golden_paths:                       # REQUIRED when type is knowledge
  - onboarding
sources:                            # OPTIONAL - external documents to sync from
  - url: https://example.com/doc
---

Body text in standard Markdown.

Use [[kno-007]] to link to another entry by ID.
Use [[kno-007|display text]] when the label should differ from the target.
Use [[code:internal/billing/invoice.go::Generate]] to reference code.
Relative Markdown links like [design](./design.md) resolve against this file.
` + "```" + `

## Rules

1. **YAML frontmatter is mandatory.** The ` + "```" + `---` + "```" + ` fences must be the first
   thing in the file (no leading blank lines).
2. **` + "`" + `id` + "`" + ` and ` + "`" + `status` + "`" + ` are required.** The ID never changes once assigned;
   status must be one of draft, active, deprecated, archived.
3. **Link by ID whenever possible.** ` + "`" + `[[kno-042]]` + "`" + ` resolves directly; title and
   alias matching are fallbacks and can turn ambiguous when titles collide.
4. **Code references** use ` + "`" + `[[code:path/to/file.go]]` + "`" + ` or
   ` + "`" + `[[code:path/to/file.go::Symbol]]` + "`" + `. The path is checked against the
   workspace; the optional symbol is informational.
5. **External URLs** (http/https) in Markdown links are left alone; they are
   not graph edges.
6. **Golden Path sections** are wrapped in marker comments and survive source
   syncs verbatim:

` + "```" + `markdown
<!-- GOLDEN_PATH_START -->
Step one: run the setup script.
<!-- GOLDEN_PATH_END -->
` + "```" + `

7. **Synced bodies are replaced wholesale.** Everything between the
   frontmatter and the golden path blocks is overwritten on the next
   ` + "`" + `sync_sources` + "`" + ` run when the entry declares sources; hand edits belong in
   golden path blocks or in entries without sources.
8. **Encoding** is UTF-8 with a trailing newline.

## Example

` + "```" + `markdown
---
id: kno-017
status: active
tags:
  - runbook
sources:
  - url: https://wiki.example.com/billing-runbook
---

# Billing incident runbook

Synced summary of the upstream wiki page lives here.

<!-- GOLDEN_PATH_START -->
On-call: page the billing team before touching [[kno-003|the ledger]].
See [[code:internal/billing/ledger.go::Repair]] for the repair entry point.
<!-- GOLDEN_PATH_END -->
` + "```" + `
`
