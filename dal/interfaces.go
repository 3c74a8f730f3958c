package dal

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DatabaseClientInterface defines the contract for the DynamoDB operations a
// load run needs. *dynamodb.Client satisfies it directly.
type DatabaseClientInterface interface {
	// Batch writes
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)

	// Table metadata
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DALContainerInterface defines the contract for the DAL container
type DALContainerInterface interface {
	GetDatabaseClient() DatabaseClientInterface
}

var _ DatabaseClientInterface = (*dynamodb.Client)(nil)
