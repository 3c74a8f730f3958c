package models

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrArity is returned when a row does not have one cell per header column
	ErrArity = errors.New("row does not match header")

	// ErrInvalidConfig is returned when a configuration value is missing or out of range
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSource is returned when the source file cannot be opened or parsed
	ErrSource = errors.New("unusable source file")

	// ErrInvalidAttributeJSON is returned when DynamoDB JSON cannot be decoded
	ErrInvalidAttributeJSON = errors.New("invalid attribute value json")

	// ErrPreviewRejected is returned when the user rejects the previewed record
	ErrPreviewRejected = errors.New("preview rejected")

	// ErrLocked is returned when another run holds the output lock
	ErrLocked = errors.New("output files are locked by another run")
)

// ArityError represents a row whose cell count differs from the header
type ArityError struct {
	Expected int
	Actual   int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("row has %d cells, header has %d columns", e.Actual, e.Expected)
}

func (e *ArityError) Is(target error) bool {
	return target == ErrArity
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid configuration for %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Message)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// SourceError represents a fatal problem with the source file
type SourceError struct {
	Path  string
	Cause error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Cause)
}

func (e *SourceError) Is(target error) bool {
	return target == ErrSource
}

func (e *SourceError) Unwrap() error { return e.Cause }

// NewArityError creates a new ArityError
func NewArityError(expected, actual int) error {
	return &ArityError{Expected: expected, Actual: actual}
}

// NewConfigError creates a new ConfigError
func NewConfigError(field, message string) error {
	return &ConfigError{Field: field, Message: message}
}

// NewSourceError creates a new SourceError
func NewSourceError(path string, cause error) error {
	return &SourceError{Path: path, Cause: cause}
}

// IsArityError checks if an error is an arity error
func IsArityError(err error) bool {
	return errors.Is(err, ErrArity)
}

// IsConfigError checks if an error is a configuration error
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsSourceError checks if an error is a source error
func IsSourceError(err error) bool {
	return errors.Is(err, ErrSource)
}
