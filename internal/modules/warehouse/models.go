package warehouse

import "time"

// Run is one pipeline run audit row.
type Run struct {
	ID           string     `json:"run_id"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Status       string     `json:"status"` // running, success, failed
	RowsIn       int        `json:"rows_in"`
	RowsOut      int        `json:"rows_out"`
	Error        string     `json:"error,omitempty"`
	StatsJSON    string     `json:"stats_json,omitempty"`
	SnapshotPath string     `json:"snapshot_path,omitempty"`
	DumpPath     string     `json:"dump_path,omitempty"`
}

// Run statuses
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)
