package reporter

import (
	"encoding/json"
	"fmt"
	"os"
)

// A Summary is the machine readable record of one run
type Summary struct {
	RunID          string         `json:"run_id"`
	Table          string         `json:"table"`
	TotalRows      uint64         `json:"total_rows"`
	RowsEmitted    uint64         `json:"rows_emitted"`
	ElapsedSeconds float64        `json:"elapsed_seconds"`
	Cancelled      bool           `json:"cancelled"`
	Failed         bool           `json:"failed"`
	Errors         []string       `json:"errors,omitempty"`
	Planes         []PlaneSummary `json:"planes"`
}

// PlaneSummary is the per-plane part of a Summary
type PlaneSummary struct {
	PlaneID     string `json:"plane_id"`
	Budget      uint64 `json:"budget"`
	RowsFlushed uint64 `json:"rows_flushed"`
	Batches     uint64 `json:"batches"`
	State       string `json:"state"`
}

// WriteSummary stores the summary as JSON at path
func WriteSummary(path string, summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("failed to write summary to %s: %w", path, err)
	}

	return nil
}
