package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEntryStatus_Valid(t *testing.T) {
	for _, s := range []EntryStatus{StatusDraft, StatusActive, StatusDeprecated, StatusArchived} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if EntryStatus("published").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestWithLinks_DoesNotShareBacking(t *testing.T) {
	e := Entry{ID: "kno-001", Status: StatusActive}
	links := []Link{{SourceID: "kno-001", TargetRaw: "kno-002", Type: LinkWikilink, Status: LinkUnresolved}}

	updated := e.WithLinks(links)
	links[0].TargetRaw = "mutated"

	if updated.Links[0].TargetRaw != "kno-002" {
		t.Errorf("target_raw = %q, want %q", updated.Links[0].TargetRaw, "kno-002")
	}
	if len(e.Links) != 0 {
		t.Error("original entry gained links")
	}
}

func TestWithSources_ReplacesWholesale(t *testing.T) {
	e := Entry{ID: "kno-001", Sources: []Source{{URL: "https://old.example.com"}}}
	updated := e.WithSources([]Source{{URL: "https://new.example.com", ETag: "abc"}})

	if len(e.Sources) != 1 || e.Sources[0].URL != "https://old.example.com" {
		t.Error("original entry sources changed")
	}
	if len(updated.Sources) != 1 || updated.Sources[0].URL != "https://new.example.com" {
		t.Errorf("updated sources = %+v", updated.Sources)
	}
}

func TestEntryJSON_ExcludesFilePath(t *testing.T) {
	e := Entry{ID: "kno-001", Status: StatusActive, FilePath: "docs/knowledge/kno-001.md"}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "kno-001.md") {
		t.Errorf("serialized entry leaked file path: %s", data)
	}
}

func TestLink_IsValid(t *testing.T) {
	if (Link{Status: LinkBroken}).IsValid() {
		t.Error("broken link reported valid")
	}
	if !(Link{Status: LinkValid}).IsValid() {
		t.Error("valid link reported invalid")
	}
	if (Link{Status: LinkAmbiguous}).IsValid() {
		t.Error("ambiguous link reported valid")
	}
}
