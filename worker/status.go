package worker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"csv-to-dynamodb/models"
)

// StatusManager persists the run summary as JSON. An empty path disables it.
type StatusManager struct {
	StatusFilePath string
}

// NewStatusManager creates a new status manager
func NewStatusManager(statusPath string) *StatusManager {
	return &StatusManager{StatusFilePath: statusPath}
}

// Enabled reports whether a status file is configured
func (sm *StatusManager) Enabled() bool {
	return sm.StatusFilePath != ""
}

func (sm *StatusManager) SaveStatus(result *models.RunResult) error {
	if !sm.Enabled() {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(sm.StatusFilePath), 0755); err != nil {
		return fmt.Errorf("failed to create status directory: %w", err)
	}

	// Update end time if not set
	if result.EndTime == nil && (result.Status == models.StatusCompleted || result.Status == models.StatusFailed) {
		now := time.Now()
		result.EndTime = &now
		result.Duration = now.Sub(result.StartTime)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	// Write atomically
	tempFile := sm.StatusFilePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp status file: %w", err)
	}
	if err := os.Rename(tempFile, sm.StatusFilePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename status file: %w", err)
	}
	return nil
}

func (sm *StatusManager) LoadStatus() (*models.RunResult, error) {
	data, err := os.ReadFile(sm.StatusFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var result models.RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &result, nil
}

// MarkCompleted records the final counters of a finished run
func (sm *StatusManager) MarkCompleted(result *models.RunResult, stats models.RunStats) error {
	result.Stats = stats
	result.Status = models.StatusCompleted
	return sm.finish(result)
}

// MarkFailed records a run that stopped before all rows were processed
func (sm *StatusManager) MarkFailed(result *models.RunResult, stats models.RunStats, errorMsg string) error {
	result.Stats = stats
	result.Status = models.StatusFailed
	result.ErrorMessage = errorMsg
	return sm.finish(result)
}

func (sm *StatusManager) finish(result *models.RunResult) error {
	now := time.Now()
	result.EndTime = &now
	result.Duration = now.Sub(result.StartTime)
	return sm.SaveStatus(result)
}
