package dal

import (
	"context"
	"encoding/json"
	"fmt"

	"csv-to-dynamodb/models"
	"csv-to-dynamodb/utils/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DALContainer implements DALContainerInterface
type DALContainer struct {
	databaseClient DatabaseClientInterface
}

// NewDALContainer wraps an existing client
func NewDALContainer(client DatabaseClientInterface) *DALContainer {
	return &DALContainer{databaseClient: client}
}

// GetDatabaseClient returns the database client
func (d *DALContainer) GetDatabaseClient() DatabaseClientInterface {
	return d.databaseClient
}

// NewDynamoDBClient creates a new DynamoDB client for the configured region.
// An endpoint override (DynamoDB Local) and static credentials are applied
// when present; otherwise the default AWS credential chain is used.
func NewDynamoDBClient(ctx context.Context, cfg models.Config, log logger.Logger) (*dynamodb.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Use static credentials if provided
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		awsCfg.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"", // session token
		))
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		// Override endpoint for local DynamoDB
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})

	log.Infof("DynamoDB client initialized for table %s in region %s", cfg.TableName, cfg.AWSRegion)
	return client, nil
}

// PrintPrettyJSON takes any struct or map and prints it as pretty JSON
func PrintPrettyJSON(data interface{}) string {
	prettyJSON, err := json.MarshalIndent(data, "", "    ") // 4 spaces indent
	if err != nil {
		return fmt.Sprintf("Failed to generate JSON: %v", err)
	}
	return string(prettyJSON)
}
