package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"csv-to-dynamodb/models"
	"csv-to-dynamodb/repository"
	"csv-to-dynamodb/services"
	"csv-to-dynamodb/utils/logger"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// MockBatchWriter implements BatchWriter for testing
type MockBatchWriter struct {
	mock.Mock
	batches [][]models.Item
}

func (m *MockBatchWriter) WriteBatch(ctx context.Context, items []models.Item) (*repository.BatchWriteResult, error) {
	m.batches = append(m.batches, items)
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.BatchWriteResult), args.Error(1)
}

// recordingSleeper counts delays instead of waiting
type recordingSleeper struct {
	delays []time.Duration
	err    error
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.err
}

// PipelineTestSuite defines a test suite for the batch pipeline
type PipelineTestSuite struct {
	suite.Suite
	ctx      context.Context
	writer   *MockBatchWriter
	sleeper  *recordingSleeper
	runLog   *bytes.Buffer
	failed   *bytes.Buffer
	progress *bytes.Buffer
	logs     *bytes.Buffer
	header   []string
}

// SetupTest runs before each test
func (suite *PipelineTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.writer = &MockBatchWriter{}
	suite.sleeper = &recordingSleeper{}
	suite.runLog = &bytes.Buffer{}
	suite.failed = &bytes.Buffer{}
	suite.progress = &bytes.Buffer{}
	suite.logs = &bytes.Buffer{}
	suite.header = []string{"id", "name"}
}

func (suite *PipelineTestSuite) newPipeline(batchSize int) *Pipeline {
	failures, err := NewFailureRecorder(suite.failed, suite.header)
	require.NoError(suite.T(), err)

	p, err := NewPipeline(PipelineConfig{
		Encoder:   services.NewService(models.Config{}, nil).GetRowEncoder(),
		Writer:    suite.writer,
		RunLog:    NewRunLog(suite.runLog),
		Failures:  failures,
		Progress:  NewProgressPrinter(suite.progress, 0),
		Sleeper:   suite.sleeper,
		Logger:    logger.NewLoggerWithOutput("debug", "text", suite.logs),
		BatchSize: batchSize,
		Interval:  50 * time.Millisecond,
	})
	require.NoError(suite.T(), err)
	suite.T().Cleanup(func() { _ = failures.Close() })
	return p
}

func (suite *PipelineTestSuite) flushFailures(p *Pipeline) string {
	require.NoError(suite.T(), p.cfg.Failures.Close())
	return suite.failed.String()
}

func rowsOf(n int) *models.SourceTable {
	table := &models.SourceTable{Header: []string{"id", "name"}}
	for i := 1; i <= n; i++ {
		table.Rows = append(table.Rows, models.SourceRow{Line: i + 1, Cells: []string{fmt.Sprint(i), fmt.Sprintf("name %d", i)}})
	}
	return table
}

func idsOf(items []models.Item) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item["id"].(*types.AttributeValueMemberN).Value)
	}
	return ids
}

// TestBatchingLaw tests ceil(N/B) sends with the remainder last
func (suite *PipelineTestSuite) TestBatchingLaw() {
	testCases := []struct {
		rows, size int
		expected   []int
	}{
		{0, 3, nil},
		{1, 3, []int{1}},
		{3, 3, []int{3}},
		{7, 3, []int{3, 3, 1}},
		{50, 25, []int{25, 25}},
		{26, 25, []int{25, 1}},
		{4, 1, []int{1, 1, 1, 1}},
	}

	for _, tc := range testCases {
		suite.Run(fmt.Sprintf("%d rows in batches of %d", tc.rows, tc.size), func() {
			suite.SetupTest()
			suite.writer.On("WriteBatch", suite.ctx, mock.Anything).Return(&repository.BatchWriteResult{}, nil)
			p := suite.newPipeline(tc.size)

			stats, err := p.Run(suite.ctx, rowsOf(tc.rows))
			require.NoError(suite.T(), err)

			sizes := make([]int, 0, len(suite.writer.batches))
			for _, batch := range suite.writer.batches {
				sizes = append(sizes, len(batch))
			}
			if tc.expected == nil {
				assert.Empty(suite.T(), sizes)
			} else {
				assert.Equal(suite.T(), tc.expected, sizes)
			}
			assert.Equal(suite.T(), len(tc.expected), stats.Batches)
			assert.Equal(suite.T(), tc.rows, stats.Succeeded)
			assert.Equal(suite.T(), tc.rows, stats.Processed)
			assert.Equal(suite.T(), StateDone, p.State())
		})
	}
}

// TestSecondBatchFails tests the 2/2/1 scenario with a failing second send
func (suite *PipelineTestSuite) TestSecondBatchFails() {
	sendErr := &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "slow down"}
	suite.writer.On("WriteBatch", suite.ctx, mock.Anything).Return(&repository.BatchWriteResult{}, nil).Once()
	suite.writer.On("WriteBatch", suite.ctx, mock.Anything).Return(nil, sendErr).Once()
	suite.writer.On("WriteBatch", suite.ctx, mock.Anything).Return(&repository.BatchWriteResult{}, nil).Once()
	p := suite.newPipeline(2)

	stats, err := p.Run(suite.ctx, rowsOf(5))
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), models.RunStats{Total: 5, Processed: 5, Succeeded: 3, Failed: 2, Batches: 3}, stats)
	assert.Equal(suite.T(), [][]string{{"1", "2"}, {"3", "4"}, {"5"}}, [][]string{
		idsOf(suite.writer.batches[0]), idsOf(suite.writer.batches[1]), idsOf(suite.writer.batches[2]),
	})

	assert.Equal(suite.T(), "\"id\",\"name\"\n\"3\",\"name 3\"\n\"4\",\"name 4\"\n", suite.flushFailures(p))

	lines := strings.Split(strings.TrimSpace(suite.runLog.String()), "\n")
	assert.Equal(suite.T(), []string{
		`Success: {"id":{"N":"1"},"name":{"S":"name 1"}}`,
		`Success: {"id":{"N":"2"},"name":{"S":"name 2"}}`,
		"=====",
		`Failure: {"id":{"N":"3"},"name":{"S":"name 3"}}`,
		`Failure: {"id":{"N":"4"},"name":{"S":"name 4"}}`,
		"Error message: api error ProvisionedThroughputExceededException: slow down",
		"=====",
		`Success: {"id":{"N":"5"},"name":{"S":"name 5"}}`,
		"=====",
	}, lines)
	assert.Contains(suite.T(), suite.logs.String(), "ProvisionedThroughputExceededException: slow down")
}

// TestDelayOnlyBetweenSends tests that the interval separates sends and never trails them
func (suite *PipelineTestSuite) TestDelayOnlyBetweenSends() {
	suite.writer.On("WriteBatch", suite.ctx, mock.Anything).Return(&repository.BatchWriteResult{}, nil)
	p := suite.newPipeline(2)

	_, err := p.Run(suite.ctx, rowsOf(5))
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []time.Duration{50 * time.Millisecond, 50 * time.Millisecond}, suite.sleeper.delays)
}

// TestSleeperErrorStopsRun tests that a cancelled delay ends the run
func (suite *PipelineTestSuite) TestSleeperErrorStopsRun() {
	suite.sleeper.err = context.Canceled
	suite.writer.On("WriteBatch", suite.ctx, mock.Anything).Return(&repository.BatchWriteResult{}, nil)
	p := suite.newPipeline(1)

	stats, err := p.Run(suite.ctx, rowsOf(3))
	assert.ErrorIs(suite.T(), err, context.Canceled)
	assert.Equal(suite.T(), 1, stats.Batches)
}

// TestSkippedRowsDoNotTakeSlots tests that arity errors are skipped and counted
func (suite *PipelineTestSuite) TestSkippedRowsDoNotTakeSlots() {
	suite.writer.On("WriteBatch", suite.ctx, mock.Anything).Return(&repository.BatchWriteResult{}, nil)
	p := suite.newPipeline(2)

	table := rowsOf(4)
	table.Rows = append(table.Rows[:2], append([]models.SourceRow{{Line: 9, Cells: []string{"bad"}}}, table.Rows[2:]...)...)

	stats, err := p.Run(suite.ctx, table)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), models.RunStats{Total: 5, Processed: 5, Succeeded: 4, Skipped: 1, Batches: 2}, stats)
	assert.Equal(suite.T(), []string{"3", "4"}, idsOf(suite.writer.batches[1]))
	assert.Contains(suite.T(), suite.logs.String(), "Skipping line 9")
	assert.Equal(suite.T(), "\"id\",\"name\"\n", suite.flushFailures(p))
}

// TestUnprocessedItemsAreFailures tests reconciliation of a partially applied batch
func (suite *PipelineTestSuite) TestUnprocessedItemsAreFailures() {
	unprocessed := models.Item{
		"id":   &types.AttributeValueMemberN{Value: "2"},
		"name": &types.AttributeValueMemberS{Value: "name 2"},
	}
	suite.writer.On("WriteBatch", suite.ctx, mock.Anything).Return(&repository.BatchWriteResult{
		Unprocessed: []models.Item{unprocessed},
	}, nil)
	p := suite.newPipeline(3)

	stats, err := p.Run(suite.ctx, rowsOf(3))
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 2, stats.Succeeded)
	assert.Equal(suite.T(), 1, stats.Failed)
	assert.Equal(suite.T(), "\"id\",\"name\"\n\"2\",\"name 2\"\n", suite.flushFailures(p))
	assert.Contains(suite.T(), suite.runLog.String(), `Failure: {"id":{"N":"2"},"name":{"S":"name 2"}}`)
	assert.Contains(suite.T(), suite.runLog.String(), "Error message: unprocessed by store")
}

// TestAddAfterDrain tests that a drained pipeline rejects rows
func (suite *PipelineTestSuite) TestAddAfterDrain() {
	p := suite.newPipeline(2)
	require.NoError(suite.T(), p.Drain(suite.ctx))
	assert.Error(suite.T(), p.Add(suite.ctx, suite.header, models.SourceRow{Cells: []string{"1", "a"}}))
	suite.writer.AssertNotCalled(suite.T(), "WriteBatch", mock.Anything, mock.Anything)
}

// TestNewPipelineValidation tests required collaborators and limits
func (suite *PipelineTestSuite) TestNewPipelineValidation() {
	failures, err := NewFailureRecorder(&bytes.Buffer{}, suite.header)
	require.NoError(suite.T(), err)
	base := PipelineConfig{
		Encoder:   services.NewService(models.Config{}, nil).GetRowEncoder(),
		Writer:    suite.writer,
		Failures:  failures,
		Logger:    logger.NewLoggerWithOutput("info", "text", &bytes.Buffer{}),
		BatchSize: 10,
	}

	_, err = NewPipeline(base)
	assert.NoError(suite.T(), err)

	tooBig := base
	tooBig.BatchSize = 26
	_, err = NewPipeline(tooBig)
	assert.True(suite.T(), models.IsConfigError(err))

	noWriter := base
	noWriter.Writer = nil
	_, err = NewPipeline(noWriter)
	assert.Error(suite.T(), err)
}

// TestDescribeError tests AWS error rendering
func (suite *PipelineTestSuite) TestDescribeError() {
	apiErr := &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "no table"}
	assert.Equal(suite.T(), "ResourceNotFoundException: no table", DescribeError(fmt.Errorf("wrapped: %w", apiErr)))
	assert.Equal(suite.T(), "plain", DescribeError(errors.New("plain")))
}

// TestPipelineTestSuite runs the pipeline test suite
func TestPipelineTestSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}
