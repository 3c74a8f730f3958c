package repository

import (
	"context"
	"fmt"

	"csv-to-dynamodb/dal"
	"csv-to-dynamodb/models"
	"csv-to-dynamodb/utils/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type TableRepository struct {
	db        dal.DatabaseClientInterface
	tableName string
	logger    logger.Logger
}

// NewTableRepository creates a new table metadata repository
func NewTableRepository(db dal.DatabaseClientInterface, tableName string, log logger.Logger) *TableRepository {
	return &TableRepository{
		db:        db,
		tableName: tableName,
		logger:    log,
	}
}

// DescribeKeyTypes reads the attribute definitions of the table. DynamoDB only
// reports attributes used in the table or index key schemas, so the result
// covers key columns only. Types other than S, N and B are ignored.
func (r *TableRepository) DescribeKeyTypes(ctx context.Context) (models.KeyTypeHints, error) {
	out, err := r.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", r.tableName, err)
	}
	if out == nil || out.Table == nil {
		return nil, fmt.Errorf("describe table %s: empty table description", r.tableName)
	}

	hints := make(models.KeyTypeHints, len(out.Table.AttributeDefinitions))
	for _, def := range out.Table.AttributeDefinitions {
		name := aws.ToString(def.AttributeName)
		t, ok := models.ParseAttributeType(def.AttributeType)
		if name == "" || !ok {
			r.logger.Warnf("Ignoring attribute definition %q with type %q", name, def.AttributeType)
			continue
		}
		hints[name] = t
	}
	return hints, nil
}
