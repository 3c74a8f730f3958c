package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"csv-to-dynamodb/models"
	"csv-to-dynamodb/repository"
	"csv-to-dynamodb/services"
	"csv-to-dynamodb/utils/logger"

	"github.com/aws/smithy-go"
)

// PipelineState is the state of the batch pipeline
type PipelineState string

const (
	StateAccumulating PipelineState = "accumulating"
	StateSending      PipelineState = "sending"
	StateDraining     PipelineState = "draining"
	StateDone         PipelineState = "done"
)

// ErrUnprocessed is logged for items the store accepted but did not write
var ErrUnprocessed = errors.New("unprocessed by store")

// BatchWriter sends one batch of items to the store
type BatchWriter interface {
	WriteBatch(ctx context.Context, items []models.Item) (*repository.BatchWriteResult, error)
}

// Sleeper waits between consecutive batch requests
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// ContextSleeper waits for d or until ctx is done
var ContextSleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

// PipelineConfig holds the collaborators of a Pipeline
type PipelineConfig struct {
	Encoder   services.RowEncoderInterface
	Writer    BatchWriter
	RunLog    *RunLog
	Failures  *FailureRecorder
	Progress  *ProgressPrinter
	Sleeper   Sleeper
	Logger    logger.Logger
	BatchSize int
	Interval  time.Duration
}

// Pipeline groups encoded rows into batches and sends them one at a time.
// Rows that cannot be encoded are skipped and never take a batch slot.
type Pipeline struct {
	cfg   PipelineConfig
	state PipelineState
	batch []models.EncodedRow
	stats models.RunStats
}

// NewPipeline creates a new batch pipeline
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Encoder == nil {
		return nil, fmt.Errorf("encoder cannot be nil")
	}
	if cfg.Writer == nil {
		return nil, fmt.Errorf("batch writer cannot be nil")
	}
	if cfg.Failures == nil {
		return nil, fmt.Errorf("failure recorder cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.BatchSize < models.BatchSizeMin || cfg.BatchSize > models.BatchSizeMax {
		return nil, models.NewConfigError("batch_size",
			fmt.Sprintf("%d is not between %d and %d", cfg.BatchSize, models.BatchSizeMin, models.BatchSizeMax))
	}
	if cfg.RunLog == nil {
		cfg.RunLog = NewRunLog(nil)
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = ContextSleeper
	}

	return &Pipeline{
		cfg:   cfg,
		state: StateAccumulating,
		batch: make([]models.EncodedRow, 0, cfg.BatchSize),
	}, nil
}

// State returns the current pipeline state
func (p *Pipeline) State() PipelineState {
	return p.state
}

// Stats returns the counters accumulated so far
func (p *Pipeline) Stats() models.RunStats {
	return p.stats
}

// Run encodes and sends every row of the table. Batch failures are recorded
// and do not stop the run; an error is returned only when a sink cannot be
// written or ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, table *models.SourceTable) (models.RunStats, error) {
	p.stats.Total = len(table.Rows)

	for _, row := range table.Rows {
		if err := p.Add(ctx, table.Header, row); err != nil {
			return p.stats, err
		}
	}
	if err := p.Drain(ctx); err != nil {
		return p.stats, err
	}
	return p.stats, nil
}

// Add encodes one row and sends the pending batch once it is full
func (p *Pipeline) Add(ctx context.Context, header []string, row models.SourceRow) error {
	if p.state != StateAccumulating {
		return fmt.Errorf("cannot add rows in state %s", p.state)
	}
	p.stats.Processed++
	defer p.updateProgress()

	item, err := p.cfg.Encoder.Encode(header, row.Cells)
	if err != nil {
		p.stats.Skipped++
		p.cfg.Logger.Warnf("Skipping line %d: %v", row.Line, err)
		return nil
	}

	p.batch = append(p.batch, models.EncodedRow{Line: row.Line, Row: row.Cells, Item: item})
	if len(p.batch) < p.cfg.BatchSize {
		return nil
	}
	return p.send(ctx)
}

// Drain sends the final partial batch, if any. Further rows are rejected.
func (p *Pipeline) Drain(ctx context.Context) error {
	if p.state == StateDone {
		return nil
	}
	p.state = StateDraining
	if len(p.batch) > 0 {
		if err := p.send(ctx); err != nil {
			return err
		}
	}
	p.state = StateDone
	return nil
}

func (p *Pipeline) send(ctx context.Context) error {
	previous := p.state
	if p.stats.Batches > 0 && p.cfg.Interval > 0 {
		if err := p.cfg.Sleeper.Sleep(ctx, p.cfg.Interval); err != nil {
			return err
		}
	}

	p.state = StateSending
	batch := p.batch
	p.batch = make([]models.EncodedRow, 0, p.cfg.BatchSize)
	p.stats.Batches++

	items := make([]models.Item, len(batch))
	for i, row := range batch {
		items[i] = row.Item
	}

	result, err := p.cfg.Writer.WriteBatch(ctx, items)
	if err != nil {
		p.cfg.Logger.Errorf("Batch %d with %d items failed: %s", p.stats.Batches, len(batch), DescribeError(err))
		if err := p.fail(batch, err); err != nil {
			return err
		}
	} else {
		var unprocessed []models.Item
		if result != nil {
			unprocessed = result.Unprocessed
		}
		if err := p.settle(batch, unprocessed); err != nil {
			return err
		}
	}
	p.cfg.RunLog.Separator()

	p.state = previous
	return nil
}

func (p *Pipeline) fail(batch []models.EncodedRow, cause error) error {
	for _, row := range batch {
		p.cfg.RunLog.Failure(row.Item)
	}
	p.cfg.RunLog.ErrorMessage(cause)
	for _, row := range batch {
		if err := p.cfg.Failures.Record(row.Row); err != nil {
			return err
		}
	}
	p.stats.Failed += len(batch)
	return nil
}

// settle logs an accepted batch. Items the store reported as unprocessed are
// matched back to their rows and treated as failed.
func (p *Pipeline) settle(batch []models.EncodedRow, unprocessed []models.Item) error {
	pending := make(map[string]int, len(unprocessed))
	for _, item := range unprocessed {
		pending[itemKey(item)]++
	}

	var failed []models.EncodedRow
	for _, row := range batch {
		key := itemKey(row.Item)
		if pending[key] > 0 {
			pending[key]--
			failed = append(failed, row)
			p.cfg.RunLog.Failure(row.Item)
			continue
		}
		p.cfg.RunLog.Success(row.Item)
		p.stats.Succeeded++
	}

	if len(failed) == 0 {
		return nil
	}
	p.cfg.Logger.Warnf("Batch %d: %d items were not processed by the store", p.stats.Batches, len(failed))
	p.cfg.RunLog.ErrorMessage(ErrUnprocessed)
	for _, row := range failed {
		if err := p.cfg.Failures.Record(row.Row); err != nil {
			return err
		}
	}
	p.stats.Failed += len(failed)
	return nil
}

func (p *Pipeline) updateProgress() {
	if p.cfg.Progress != nil {
		p.cfg.Progress.Update(p.stats.Processed)
	}
}

func itemKey(item models.Item) string {
	data, err := models.MarshalItem(item)
	if err != nil {
		return fmt.Sprintf("%p", item)
	}
	return string(data)
}

// DescribeError renders AWS API errors with their error code
func DescribeError(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err.Error()
}
