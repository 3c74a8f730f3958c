package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"

	"csv-to-dynamodb/models"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load builds the run configuration from, in increasing priority: defaults,
// a config file, a .env file, environment variables and any flags already
// bound to v.
func Load(v *viper.Viper) (models.Config, error) {
	setDefaults(v)

	if err := readConfigFile(v); err != nil {
		return models.Config{}, err
	}

	// .env never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return models.Config{}, models.NewConfigError("", fmt.Sprintf("failed to load .env file: %v", err))
	}

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	var config models.Config
	if err := v.Unmarshal(&config); err != nil {
		return models.Config{}, models.NewConfigError("", fmt.Sprintf("failed to unmarshal config: %v", err))
	}

	if err := validate(&config); err != nil {
		return models.Config{}, err
	}
	return config, nil
}

func readConfigFile(v *viper.Viper) error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return models.NewConfigError("config", fmt.Sprintf("error reading configuration file %q: %v", path, err))
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return models.NewConfigError("config", fmt.Sprintf("error reading configuration file: %v", err))
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Source
	v.SetDefault("filename", "")

	// AWS defaults
	v.SetDefault("aws_region", "")
	v.SetDefault("aws_access_key_id", "")
	v.SetDefault("aws_secret_access_key", "")
	v.SetDefault("dynamodb_endpoint", "")
	v.SetDefault("table_name", "")

	// Batching defaults
	v.SetDefault("batch_size", models.BatchSizeDefault)
	v.SetDefault("batch_interval", models.BatchIntervalDefault)

	// Conversion defaults
	v.SetDefault("allow_set", false)
	v.SetDefault("allow_null", false)

	// Run defaults
	v.SetDefault("preview_record", false)
	v.SetDefault("enable_log", true)
	v.SetDefault("log_file", models.LogFileDefault)
	v.SetDefault("failed_file", models.FailedFileDefault)
	v.SetDefault("status_file", "")
	v.SetDefault("lock_timeout", "2h")

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

var validate = newValidator()

func newValidator() func(*models.Config) error {
	vd := validator.New()
	vd.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return func(c *models.Config) error {
		err := vd.Struct(c)
		if err == nil {
			return nil
		}
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return models.NewConfigError("", err.Error())
		}
		fe := verrs[0]
		return models.NewConfigError(fe.Field(), describeViolation(fe))
	}
}

func describeViolation(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "a value is required"
	case "min", "max":
		switch fe.Field() {
		case "batch_size":
			return fmt.Sprintf("%v is not between %d and %d", fe.Value(), models.BatchSizeMin, models.BatchSizeMax)
		case "batch_interval":
			return fmt.Sprintf("%v is not between %d and %d", fe.Value(), models.BatchIntervalMin, models.BatchIntervalMax)
		}
		return fmt.Sprintf("%v violates %s=%s", fe.Value(), fe.Tag(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%q must be one of: %s", fe.Value(), fe.Param())
	case "url":
		return fmt.Sprintf("%q is not a valid URL", fe.Value())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
