// Package probe implements the canary liveness check: scan the workspace
// and assert that a designated entry exists and is active. It is a sanity
// check for the pipeline, not a correctness engine.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/starford/cortex/internal/models"
)

// DefaultCanaryID is the entry the probe looks for unless told otherwise.
const DefaultCanaryID = "kno-canary"

// Scanner is the slice of the pipeline the probe needs.
type Scanner interface {
	Scan(ctx context.Context) ([]models.Entry, error)
}

// Result is a structured pass/fail outcome. Expected failures (missing
// canary, wrong status, scan errors) are reported here, never returned as
// errors.
type Result struct {
	Passed         bool      `json:"passed"`
	CanaryID       string    `json:"canary_id"`
	EntriesScanned int       `json:"entries_scanned"`
	Message        string    `json:"message"`
	CheckedAt      time.Time `json:"checked_at"`
}

// Run scans the workspace through s and checks the canary entry. An empty
// canaryID selects DefaultCanaryID.
func Run(ctx context.Context, s Scanner, canaryID string) Result {
	if canaryID == "" {
		canaryID = DefaultCanaryID
	}
	res := Result{CanaryID: canaryID, CheckedAt: time.Now().UTC()}

	entries, err := s.Scan(ctx)
	if err != nil {
		res.Message = fmt.Sprintf("scan failed: %v", err)
		return res
	}
	res.EntriesScanned = len(entries)

	for _, e := range entries {
		if e.ID != canaryID {
			continue
		}
		if e.Status != models.StatusActive {
			res.Message = fmt.Sprintf("canary %q has status %q, want %q", canaryID, e.Status, models.StatusActive)
			return res
		}
		res.Passed = true
		res.Message = fmt.Sprintf("canary %q is active; scanned %d entries", canaryID, len(entries))
		return res
	}

	res.Message = fmt.Sprintf("canary %q not found among %d entries", canaryID, len(entries))
	return res
}
