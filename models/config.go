package models

import "time"

// Batch limits enforced on the command line and in config files
const (
	BatchSizeMin         = 1
	BatchSizeMax         = 25
	BatchSizeDefault     = 10
	BatchIntervalMin     = 0
	BatchIntervalMax     = 30000
	BatchIntervalDefault = 50

	LogFileDefault    = "dynamodb_logs.txt"
	FailedFileDefault = "failed_items.csv"
)

// Config holds all configuration for a load run. It is built once before
// processing starts and is not modified afterwards.
type Config struct {
	// Source
	Filename string `mapstructure:"filename" validate:"required"`

	// AWS
	AWSRegion          string `mapstructure:"aws_region" validate:"required"`
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`
	DynamoDBEndpoint   string `mapstructure:"dynamodb_endpoint" validate:"omitempty,url"`
	TableName          string `mapstructure:"table_name" validate:"required"`

	// Batching
	BatchSize     int `mapstructure:"batch_size" validate:"min=1,max=25"`
	BatchInterval int `mapstructure:"batch_interval" validate:"min=0,max=30000"` // milliseconds

	// Data conversion
	AllowSet  bool `mapstructure:"allow_set"`
	AllowNull bool `mapstructure:"allow_null"`

	// Run behaviour
	PreviewRecord bool          `mapstructure:"preview_record"`
	EnableLog     bool          `mapstructure:"enable_log"`
	LogFile       string        `mapstructure:"log_file" validate:"required"`
	FailedFile    string        `mapstructure:"failed_file" validate:"required"`
	StatusFile    string        `mapstructure:"status_file"`
	LockTimeout   time.Duration `mapstructure:"lock_timeout"`

	// Logging
	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`
}

// Interval returns the inter-batch delay as a duration
func (c Config) Interval() time.Duration {
	return time.Duration(c.BatchInterval) * time.Millisecond
}
