package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"csv-to-dynamodb/models"
	"csv-to-dynamodb/repository"
	"csv-to-dynamodb/services"
	"csv-to-dynamodb/utils/logger"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/google/uuid"
)

// Confirmer asks the user a yes/no question
type Confirmer interface {
	ReadYesNo(question string, defaultYes bool) (bool, error)
}

// EncoderFactory builds the row encoder once key type hints are known
type EncoderFactory func(hints models.KeyTypeHints) services.RowEncoderInterface

// Service runs one load: it owns the output lock, the sinks and the pipeline
// for the duration of Run.
type Service struct {
	config     models.Config
	logger     logger.Logger
	repo       repository.RepositoryContainerInterface
	newEncoder EncoderFactory
	confirmer  Confirmer
	sleeper    Sleeper
	out        io.Writer
	ownerID    string
}

// ServiceOption customises a Service
type ServiceOption func(*Service)

// WithConfirmer sets the preview confirmation prompt
func WithConfirmer(c Confirmer) ServiceOption {
	return func(s *Service) { s.confirmer = c }
}

// WithSleeper replaces the inter-batch delay implementation
func WithSleeper(sl Sleeper) ServiceOption {
	return func(s *Service) { s.sleeper = sl }
}

// WithOutput sets where progress and the run summary are printed
func WithOutput(w io.Writer) ServiceOption {
	return func(s *Service) { s.out = w }
}

// WithEncoderFactory replaces the default inference based encoder
func WithEncoderFactory(f EncoderFactory) ServiceOption {
	return func(s *Service) { s.newEncoder = f }
}

// NewService creates a new load service
func NewService(cfg models.Config, repo repository.RepositoryContainerInterface, log logger.Logger, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository cannot be nil")
	}
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}

	s := &Service{
		config:  cfg,
		logger:  log,
		repo:    repo,
		sleeper: ContextSleeper,
		out:     os.Stdout,
		ownerID: fmt.Sprintf("loader-%s-%s", hostname, uuid.New().String()[:8]),
		newEncoder: func(hints models.KeyTypeHints) services.RowEncoderInterface {
			return services.NewService(cfg, hints).GetRowEncoder()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run loads the configured source file into the table. Batch failures do not
// make Run fail; they are counted in the returned result.
func (s *Service) Run(ctx context.Context) (result *models.RunResult, err error) {
	cfg := s.config
	result = &models.RunResult{
		RunID:     uuid.New().String(),
		Status:    models.StatusRunning,
		Table:     cfg.TableName,
		Source:    cfg.Filename,
		StartTime: time.Now(),
	}
	status := NewStatusManager(cfg.StatusFile)

	lm := NewLockManager(LockPathFor(cfg.FailedFile), cfg.LockTimeout, cfg.TableName)
	lockInfo, err := lm.AcquireLock(s.ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire output lock: %w", err)
	}
	defer func() {
		if rerr := lm.ReleaseLock(lockInfo); rerr != nil {
			s.logger.Errorf("Failed to release lock: %v", rerr)
		}
	}()

	table, err := s.repo.GetRowSource().ReadCSV(cfg.Filename)
	if err != nil {
		return nil, err
	}
	result.Stats.Total = len(table.Rows)
	s.logger.Infof("Read %d rows with %d columns from %s", len(table.Rows), len(table.Header), cfg.Filename)

	hints := s.describeKeyTypes(ctx)
	result.KeyTypes = make(map[string]string, len(hints))
	for column, t := range hints {
		result.KeyTypes[column] = t.String()
	}
	encoder := s.newEncoder(hints)

	if cfg.PreviewRecord {
		if err := s.preview(encoder, table); err != nil {
			return nil, err
		}
	}

	if err := status.SaveStatus(result); err != nil {
		s.logger.Warnf("Failed to save run status: %v", err)
	}
	defer func() {
		var serr error
		if err != nil {
			serr = status.MarkFailed(result, result.Stats, err.Error())
		} else {
			serr = status.MarkCompleted(result, result.Stats)
		}
		if serr != nil {
			s.logger.Warnf("Failed to save run status: %v", serr)
		}
	}()

	stats, err := s.load(ctx, encoder, table)
	result.Stats = stats
	if err != nil {
		return result, err
	}

	s.printSummary(stats)
	return result, nil
}

// load owns the run log and the failed-items file; both are closed on every path
func (s *Service) load(ctx context.Context, encoder services.RowEncoderInterface, table *models.SourceTable) (stats models.RunStats, err error) {
	cfg := s.config

	failures, err := OpenFailureRecorder(cfg.FailedFile, table.Header)
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := failures.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close failed-items file: %w", cerr))
		}
	}()

	runLog, err := OpenRunLog(cfg.LogFile, cfg.EnableLog)
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := runLog.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close run log: %w", cerr))
		}
	}()

	pipeline, err := NewPipeline(PipelineConfig{
		Encoder:   encoder,
		Writer:    s.repo.GetBatchRepository(),
		RunLog:    runLog,
		Failures:  failures,
		Progress:  NewProgressPrinter(s.out, len(table.Rows)),
		Sleeper:   s.sleeper,
		Logger:    s.logger,
		BatchSize: cfg.BatchSize,
		Interval:  cfg.Interval(),
	})
	if err != nil {
		return stats, err
	}

	fmt.Fprintln(s.out, "Starting to upload records:")
	return pipeline.Run(ctx, table)
}

// describeKeyTypes never fails: without hints every column is inferred
func (s *Service) describeKeyTypes(ctx context.Context) models.KeyTypeHints {
	s.logger.Info("Reading DynamoDB table definition...")
	hints, err := s.repo.GetTableRepository().DescribeKeyTypes(ctx)
	if err != nil {
		s.logger.Warnf("Cannot read description of table %s, inferring all columns: %s", s.config.TableName, DescribeError(err))
		return models.KeyTypeHints{}
	}

	columns := make([]string, 0, len(hints))
	for column := range hints {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		s.logger.Infof("Key attribute %s has type %s", column, hints[column])
	}
	return hints
}

// preview shows the first encodable row and asks the user to confirm it.
// Without such a row there is nothing to confirm and the run goes on to
// count every row as skipped.
func (s *Service) preview(encoder services.RowEncoderInterface, table *models.SourceTable) error {
	for _, row := range table.Rows {
		item, err := encoder.Encode(table.Header, row.Cells)
		if err != nil {
			continue
		}

		data, err := models.MarshalItem(item)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Preview the first record in DynamoDB JSON format: %s\n", data)

		var plain map[string]any
		if err := attributevalue.UnmarshalMap(item, &plain); err == nil {
			s.logger.Debugf("Preview record as plain values: %v", plain)
		}

		if s.confirmer == nil {
			return nil
		}
		ok, err := s.confirmer.ReadYesNo("Does the record format look correct?", true)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(s.out, "Incorrect format, exiting...")
			return models.ErrPreviewRejected
		}
		fmt.Fprintln(s.out)
		return nil
	}
	if len(table.Rows) > 0 {
		s.logger.Warnf("No row of %s matches the header, nothing to preview", s.config.Filename)
	}
	return nil
}

func (s *Service) printSummary(stats models.RunStats) {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, "All the records have been processed!")
	if s.config.EnableLog {
		fmt.Fprintf(s.out, "Logs have been saved to %s\n", s.config.LogFile)
	}
	fmt.Fprintf(s.out, "Failed items have been saved to %s\n", s.config.FailedFile)
	fmt.Fprintf(s.out, "%d/%d items have been saved in DynamoDB. Error rate: %.2f%%\n",
		stats.Succeeded, stats.Total, stats.ErrorRate())
	if stats.Skipped > 0 {
		fmt.Fprintf(s.out, "%d rows did not match the header and were skipped\n", stats.Skipped)
	}
}
