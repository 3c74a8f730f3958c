package models

import "time"

// LockInfo represents the output lock held by a run
type LockInfo struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner"`
	Host       string    `json:"host"`
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Table      string    `json:"table"`
}

// RunStatus represents the current status of a load run
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// RunStats holds the counters accumulated by the batch pipeline.
// All counters only ever grow during a run.
type RunStats struct {
	Total     int `json:"total"`     // data rows in the source
	Processed int `json:"processed"` // rows consumed so far
	Succeeded int `json:"succeeded"` // items accepted by the store
	Failed    int `json:"failed"`    // items rejected or left unprocessed
	Skipped   int `json:"skipped"`   // rows that could not be encoded
	Batches   int `json:"batches"`   // batch write requests issued
}

// ErrorRate returns the share of rows not stored, in percent
func (s RunStats) ErrorRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return 100 * float64(s.Total-s.Succeeded) / float64(s.Total)
}

// RunResult holds the persisted summary of a load run
type RunResult struct {
	RunID        string            `json:"run_id"`
	Status       RunStatus         `json:"status"`
	Table        string            `json:"table"`
	Source       string            `json:"source"`
	StartTime    time.Time         `json:"start_time"`
	EndTime      *time.Time        `json:"end_time,omitempty"`
	Duration     time.Duration     `json:"duration"`
	Stats        RunStats          `json:"stats"`
	KeyTypes     map[string]string `json:"key_types,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}
