package worker

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"csv-to-dynamodb/models"

	"github.com/sirupsen/logrus"
)

// FailureRecorder writes rows that could not be stored to a CSV file.
// Every cell is quoted so the file can be fed back as a source.
type FailureRecorder struct {
	w      *bufio.Writer
	closer io.Closer
	rows   int
}

// NewFailureRecorder creates a recorder over w and writes the header line
func NewFailureRecorder(w io.Writer, header []string) (*FailureRecorder, error) {
	r := &FailureRecorder{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	if err := r.writeLine(header); err != nil {
		return nil, fmt.Errorf("failed to write failed-items header: %w", err)
	}
	return r, nil
}

// OpenFailureRecorder truncates or creates the file at path
func OpenFailureRecorder(path string, header []string) (*FailureRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create failed-items file: %w", err)
	}
	r, err := NewFailureRecorder(f, header)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Record appends one failed row
func (r *FailureRecorder) Record(row []string) error {
	if err := r.writeLine(row); err != nil {
		return fmt.Errorf("failed to record failed row: %w", err)
	}
	r.rows++
	return nil
}

// Rows returns the number of rows recorded, header excluded
func (r *FailureRecorder) Rows() int {
	return r.rows
}

// Close flushes buffered rows and closes the underlying file
func (r *FailureRecorder) Close() error {
	err := r.w.Flush()
	if r.closer != nil {
		err = errors.Join(err, r.closer.Close())
	}
	return err
}

func (r *FailureRecorder) writeLine(cells []string) error {
	for i, cell := range cells {
		if i > 0 {
			if err := r.w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := r.w.WriteString(QuoteCell(cell)); err != nil {
			return err
		}
	}
	return r.w.WriteByte('\n')
}

// QuoteCell wraps a cell in double quotes, doubling embedded quotes
func QuoteCell(cell string) string {
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}

// lineFormatter renders run log entries as bare lines
type lineFormatter struct{}

func (lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	return []byte(entry.Message + "\n"), nil
}

// RunLog records the outcome of every batch request. Each item is written on
// its own line as "Success: <json>" or "Failure: <json>"; a failed batch adds
// one "Error message: <err>" line and every batch ends with "=====".
type RunLog struct {
	log    *logrus.Logger
	closer io.Closer
}

// NewRunLog creates a run log over w. A nil writer disables the log.
func NewRunLog(w io.Writer) *RunLog {
	l := logrus.New()
	l.SetFormatter(lineFormatter{})
	l.SetLevel(logrus.InfoLevel)
	if w == nil {
		l.SetOutput(io.Discard)
		return &RunLog{log: l}
	}
	l.SetOutput(w)
	r := &RunLog{log: l}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r
}

// OpenRunLog truncates or creates the file at path, or discards everything
// when enabled is false. Like the failed-items file it covers one run.
func OpenRunLog(path string, enabled bool) (*RunLog, error) {
	if !enabled {
		return NewRunLog(nil), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	return NewRunLog(f), nil
}

// Success logs an item accepted by the store
func (r *RunLog) Success(item models.Item) {
	r.logItem("Success", item)
}

// Failure logs an item that was not stored
func (r *RunLog) Failure(item models.Item) {
	r.logItem("Failure", item)
}

// ErrorMessage logs the error that failed a batch
func (r *RunLog) ErrorMessage(err error) {
	r.log.Infof("Error message: %v", err)
}

// Separator closes a batch
func (r *RunLog) Separator() {
	r.log.Info("=====")
}

// Close closes the underlying file, if any
func (r *RunLog) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *RunLog) logItem(outcome string, item models.Item) {
	data, err := models.MarshalItem(item)
	if err != nil {
		r.log.Infof("%s: <unencodable item: %v>", outcome, err)
		return
	}
	r.log.Infof("%s: %s", outcome, data)
}
