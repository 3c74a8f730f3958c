package worker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"csv-to-dynamodb/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// LockTestSuite defines a test suite for the output lock
type LockTestSuite struct {
	suite.Suite
	path string
	lm   *LockManager
}

// SetupTest runs before each test
func (suite *LockTestSuite) SetupTest() {
	suite.path = LockPathFor(filepath.Join(suite.T().TempDir(), "failed_items.csv"))
	suite.lm = NewLockManager(suite.path, time.Hour, "people")
}

// TestAcquireAndRelease tests the normal lock cycle
func (suite *LockTestSuite) TestAcquireAndRelease() {
	info, err := suite.lm.AcquireLock("owner-a")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "owner-a", info.Owner)
	assert.Equal(suite.T(), "people", info.Table)
	assert.FileExists(suite.T(), suite.path)

	require.NoError(suite.T(), suite.lm.ReleaseLock(info))
	assert.NoFileExists(suite.T(), suite.path)

	// releasing twice is harmless
	assert.NoError(suite.T(), suite.lm.ReleaseLock(info))
}

// TestLockHeldByAnotherOwner tests that a live lock blocks other runs
func (suite *LockTestSuite) TestLockHeldByAnotherOwner() {
	_, err := suite.lm.AcquireLock("owner-a")
	require.NoError(suite.T(), err)

	_, err = suite.lm.AcquireLock("owner-b")
	assert.ErrorIs(suite.T(), err, models.ErrLocked)

	err = suite.lm.ReleaseLock(&models.LockInfo{Owner: "owner-b"})
	assert.Error(suite.T(), err)
}

// TestSameOwnerExtends tests re-acquiring a lock already held
func (suite *LockTestSuite) TestSameOwnerExtends() {
	first, err := suite.lm.AcquireLock("owner-a")
	require.NoError(suite.T(), err)

	second, err := suite.lm.AcquireLock("owner-a")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), first.ID, second.ID)
	assert.False(suite.T(), second.ExpiresAt.Before(first.ExpiresAt))
}

// TestStaleLockIsReplaced tests that an expired lock does not block
func (suite *LockTestSuite) TestStaleLockIsReplaced() {
	stale := models.LockInfo{
		ID:         "old",
		Owner:      "crashed-run",
		AcquiredAt: time.Now().Add(-3 * time.Hour),
		ExpiresAt:  time.Now().Add(-time.Hour),
	}
	data, err := json.Marshal(stale)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), os.WriteFile(suite.path, data, 0644))

	info, err := suite.lm.AcquireLock("owner-b")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "owner-b", info.Owner)
	assert.NotEqual(suite.T(), "old", info.ID)
}

func (suite *LockTestSuite) writeLock(info models.LockInfo) {
	data, err := json.Marshal(info)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), os.WriteFile(suite.path, data, 0644))
}

// TestLockRecordsProcess tests that the holder's host and PID are stored
func (suite *LockTestSuite) TestLockRecordsProcess() {
	info, err := suite.lm.AcquireLock("owner-a")
	require.NoError(suite.T(), err)

	host, _ := os.Hostname()
	assert.Equal(suite.T(), host, info.Host)
	assert.Equal(suite.T(), os.Getpid(), info.PID)
}

// TestLockOfExitedProcessIsTakenOver tests recovery after an interrupted run
func (suite *LockTestSuite) TestLockOfExitedProcessIsTakenOver() {
	host, err := os.Hostname()
	require.NoError(suite.T(), err)
	suite.writeLock(models.LockInfo{
		ID:         "interrupted",
		Owner:      "loader-host-aaaaaaaa",
		Host:       host,
		PID:        1 << 30,
		AcquiredAt: time.Now(),
		ExpiresAt:  time.Now().Add(time.Hour),
	})

	info, err := suite.lm.AcquireLock("loader-host-bbbbbbbb")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "loader-host-bbbbbbbb", info.Owner)
	assert.NotEqual(suite.T(), "interrupted", info.ID)
}

// TestLockOfLiveProcessIsHonoured tests that a running holder keeps its lock
func (suite *LockTestSuite) TestLockOfLiveProcessIsHonoured() {
	host, err := os.Hostname()
	require.NoError(suite.T(), err)
	suite.writeLock(models.LockInfo{
		Owner:     "loader-host-aaaaaaaa",
		Host:      host,
		PID:       os.Getpid(),
		ExpiresAt: time.Now().Add(time.Hour),
	})

	_, err = suite.lm.AcquireLock("loader-host-bbbbbbbb")
	assert.ErrorIs(suite.T(), err, models.ErrLocked)
}

// TestLockFromAnotherHostIsHonoured tests that remote holders are never taken over
func (suite *LockTestSuite) TestLockFromAnotherHostIsHonoured() {
	suite.writeLock(models.LockInfo{
		Owner:     "loader-elsewhere-aaaaaaaa",
		Host:      "some-other-host.invalid",
		PID:       1 << 30,
		ExpiresAt: time.Now().Add(time.Hour),
	})

	_, err := suite.lm.AcquireLock("loader-host-bbbbbbbb")
	assert.ErrorIs(suite.T(), err, models.ErrLocked)
}

// TestDefaultTimeout tests the fallback timeout
func (suite *LockTestSuite) TestDefaultTimeout() {
	assert.Equal(suite.T(), DefaultLockTimeout, NewLockManager(suite.path, 0, "").LockTimeout)
}

// TestLockTestSuite runs the lock test suite
func TestLockTestSuite(t *testing.T) {
	suite.Run(t, new(LockTestSuite))
}
