package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"csv-to-dynamodb/dal"
	"csv-to-dynamodb/models"
	"csv-to-dynamodb/repository"
	"csv-to-dynamodb/utils"
	"csv-to-dynamodb/utils/logger"
	"csv-to-dynamodb/worker"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"region":      "aws_region",
	"endpoint":    "dynamodb_endpoint",
	"table":       "table_name",
	"size":        "batch_size",
	"interval":    "batch_interval",
	"allowset":    "allow_set",
	"allownull":   "allow_null",
	"preview":     "preview_record",
	"log-file":    "log_file",
	"failed-file": "failed_file",
	"status-file": "status_file",
	"log-level":   "log_level",
	"log-format":  "log_format",
	"config":      "config",
}

// Controller turns command line input into a load run
type Controller struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// newLoader is replaced in tests to avoid a real DynamoDB client
	newLoader func(ctx context.Context, cfg models.Config, log logger.Logger, prompter *utils.Prompter) (Loader, error)
}

// Loader runs a configured load
type Loader interface {
	Run(ctx context.Context) (*models.RunResult, error)
}

// NewController creates a new CLI controller
func NewController(stdin io.Reader, stdout, stderr io.Writer) *Controller {
	return &Controller{
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		newLoader: newDynamoDBLoader,
	}
}

// NewRootCommand builds the csv-to-dynamodb command
func (c *Controller) NewRootCommand() *cobra.Command {
	rc := &cobra.Command{
		Use:   "csv-to-dynamodb FILENAME",
		Short: "Load a CSV file into a DynamoDB table",
		Long: `Load a CSV file into a DynamoDB table.

Column types are inferred from the cell text: numbers, booleans, null and
JSON arrays or objects are stored with their DynamoDB types, everything else
as strings. Key attributes always use the type declared by the table.

Run with only a filename to be asked for the settings interactively.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one FILENAME argument, got %d", len(args))
			}
			return nil
		},
		RunE: c.run,
	}

	flags := rc.Flags()
	flags.StringP("region", "r", "", "AWS region, e.g. ap-southeast-2")
	flags.StringP("endpoint", "e", "", "DynamoDB endpoint URL, e.g. http://localhost:8000 for DynamoDB Local")
	flags.StringP("table", "t", "", "DynamoDB table name")
	flags.IntP("size", "s", models.BatchSizeDefault,
		fmt.Sprintf("batch size between %d and %d", models.BatchSizeMin, models.BatchSizeMax))
	flags.IntP("interval", "i", models.BatchIntervalDefault,
		fmt.Sprintf("batch interval in milliseconds between %d and %d", models.BatchIntervalMin, models.BatchIntervalMax))
	flags.Bool("allowset", false, "convert lists to sets whenever possible")
	flags.Bool("allownull", false, "save null values; without the flag they are left out")
	flags.BoolP("preview", "p", false, "preview the first record before uploading")
	flags.BoolP("nolog", "n", false, "do not log requests and error messages (not recommended)")
	flags.String("log-file", models.LogFileDefault, "file the run log is written to")
	flags.String("failed-file", models.FailedFileDefault, "file failed rows are written to")
	flags.String("status-file", "", "write a JSON run summary to this file")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.StringP("config", "c", "", "configuration file to read from")
	flags.BoolP("version", "V", false, "print version information and exit")

	rc.SetIn(c.stdin)
	rc.SetOut(c.stdout)
	rc.SetErr(c.stderr)
	return rc
}

func (c *Controller) run(cmd *cobra.Command, args []string) error {
	if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
		info := utils.GetVersionInfo()
		fmt.Fprintf(c.stdout, "csv-to-dynamodb version %s\n", info.Version)
		fmt.Fprintf(c.stdout, "Git commit: %s\n", info.GitCommit)
		fmt.Fprintf(c.stdout, "Build date: %s\n", info.BuildDate)
		return nil
	}
	cmd.SilenceUsage = true

	prompter := utils.NewPrompter(c.stdin, c.stdout)
	v := viper.New()
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	v.Set("filename", args[0])

	if cmd.Flags().NFlag() == 0 {
		if err := askSettings(v, prompter); err != nil {
			return err
		}
		fmt.Fprintln(c.stdout)
	}

	cfg, err := utils.Load(v)
	if err != nil {
		return err
	}

	log := logger.NewLoggerWithOutput(cfg.LogLevel, cfg.LogFormat, c.stdout)
	log.Debugf("Configuration: %s", dal.PrintPrettyJSON(redact(cfg)))
	// SIGINT and SIGTERM cancel the run; the output lock is still released
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, err := c.newLoader(ctx, cfg, log, prompter)
	if err != nil {
		return err
	}
	_, err = loader.Run(ctx)
	return err
}

func redact(cfg models.Config) models.Config {
	if cfg.AWSSecretAccessKey != "" {
		cfg.AWSSecretAccessKey = "********"
	}
	return cfg
}

// bindFlags makes flags the highest priority source for their config keys.
// Unchanged flags only contribute their defaults.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	if flags.Changed("nolog") {
		nolog, err := flags.GetBool("nolog")
		if err != nil {
			return err
		}
		v.Set("enable_log", !nolog)
	}
	return nil
}

// askSettings prompts for the settings of an interactive run
func askSettings(v *viper.Viper, p *utils.Prompter) error {
	region, err := p.ReadText("Input Region (eg. ap-southeast-2)")
	if err != nil {
		return err
	}
	table, err := p.ReadText("Input table name")
	if err != nil {
		return err
	}
	size, err := p.ReadInt("Input batch size", "batch_size", models.BatchSizeMin, models.BatchSizeMax)
	if err != nil {
		return err
	}
	interval, err := p.ReadInt("Input batch interval in milliseconds", "batch_interval", models.BatchIntervalMin, models.BatchIntervalMax)
	if err != nil {
		return err
	}
	allowSet, err := p.ReadYesNo("Would you like to convert list to set whenever possible?", false)
	if err != nil {
		return err
	}
	preview, err := p.ReadYesNo("Would you like to preview the first record before uploading?", true)
	if err != nil {
		return err
	}

	v.Set("aws_region", region)
	v.Set("table_name", table)
	v.Set("batch_size", size)
	v.Set("batch_interval", interval)
	v.Set("allow_set", allowSet)
	v.Set("preview_record", preview)
	v.Set("allow_null", false)
	v.Set("enable_log", true)
	return nil
}

func newDynamoDBLoader(ctx context.Context, cfg models.Config, log logger.Logger, prompter *utils.Prompter) (Loader, error) {
	client, err := dal.NewDynamoDBClient(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	repo := repository.NewRepository(dal.NewDALContainer(client).GetDatabaseClient(), cfg, log)
	return worker.NewService(cfg, repo, log, worker.WithConfirmer(prompter))
}
