package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"csv-to-dynamodb/models"
)

// DefaultLockTimeout is used when no lock timeout is configured
const DefaultLockTimeout = 2 * time.Hour

// LockManager guards the output files of a run with a lock file, so two
// concurrent runs never write into the same sinks.
type LockManager struct {
	LockFilePath string
	LockTimeout  time.Duration
	Table        string
}

// NewLockManager creates a new lock manager
func NewLockManager(lockPath string, timeout time.Duration, table string) *LockManager {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &LockManager{
		LockFilePath: lockPath,
		LockTimeout:  timeout,
		Table:        table,
	}
}

// LockPathFor returns the lock file used for the given failed-items file
func LockPathFor(failedFile string) string {
	return failedFile + ".lock"
}

// AcquireLock takes the lock for ownerID. A lock held by another owner is
// honoured until it expires, unless that owner was a process on this host
// which no longer exists.
func (lm *LockManager) AcquireLock(ownerID string) (*models.LockInfo, error) {
	if err := os.MkdirAll(filepath.Dir(lm.LockFilePath), 0755); err != nil {
		return nil, err
	}

	now := time.Now()
	host, _ := os.Hostname()
	if existing, err := lm.readLockFile(); err == nil && now.Before(existing.ExpiresAt) {
		if existing.Owner == ownerID {
			return lm.extendLock(existing)
		}
		if !abandoned(existing, host) {
			return nil, fmt.Errorf("%w: held by %s until %s", models.ErrLocked,
				existing.Owner, existing.ExpiresAt.Format(time.RFC3339))
		}
	}

	lockInfo := &models.LockInfo{
		ID:         fmt.Sprintf("load-lock-%d", now.UnixNano()),
		Owner:      ownerID,
		Host:       host,
		PID:        os.Getpid(),
		AcquiredAt: now,
		ExpiresAt:  now.Add(lm.LockTimeout),
		Table:      lm.Table,
	}

	if err := lm.writeLockFile(lockInfo); err != nil {
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	return lockInfo, nil
}

// ReleaseLock removes the lock file if lockInfo still owns it
func (lm *LockManager) ReleaseLock(lockInfo *models.LockInfo) error {
	current, err := lm.readLockFile()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read lock file: %w", err)
	}

	if current.Owner != lockInfo.Owner {
		return fmt.Errorf("cannot release lock owned by %s", current.Owner)
	}

	if err := os.Remove(lm.LockFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// abandoned reports whether the lock was left behind by a process on this
// host that has since exited
func abandoned(lockInfo *models.LockInfo, host string) bool {
	if lockInfo.PID <= 0 || host == "" || lockInfo.Host != host {
		return false
	}
	return !processAlive(lockInfo.PID)
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return !errors.Is(err, os.ErrProcessDone) && !errors.Is(err, syscall.ESRCH)
}

func (lm *LockManager) readLockFile() (*models.LockInfo, error) {
	data, err := os.ReadFile(lm.LockFilePath)
	if err != nil {
		return nil, err
	}

	var lockInfo models.LockInfo
	if err := json.Unmarshal(data, &lockInfo); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	return &lockInfo, nil
}

func (lm *LockManager) extendLock(existing *models.LockInfo) (*models.LockInfo, error) {
	extended := *existing
	extended.ExpiresAt = time.Now().Add(lm.LockTimeout)

	if err := lm.writeLockFile(&extended); err != nil {
		return nil, fmt.Errorf("failed to extend lock: %w", err)
	}
	return &extended, nil
}

func (lm *LockManager) writeLockFile(lockInfo *models.LockInfo) error {
	data, err := json.MarshalIndent(lockInfo, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize lock info: %w", err)
	}

	tempFile := lm.LockFilePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp lock file: %w", err)
	}
	if err := os.Rename(tempFile, lm.LockFilePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp lock file: %w", err)
	}
	return nil
}
