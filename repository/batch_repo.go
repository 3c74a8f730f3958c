package repository

import (
	"context"
	"fmt"

	"csv-to-dynamodb/dal"
	"csv-to-dynamodb/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// BatchWriteResult holds what the store reported for an accepted batch
type BatchWriteResult struct {
	// Unprocessed lists items the store accepted the request for but did not write
	Unprocessed []models.Item
}

type BatchRepository struct {
	db        dal.DatabaseClientInterface
	tableName string
}

// NewBatchRepository creates a new batch write repository
func NewBatchRepository(db dal.DatabaseClientInterface, tableName string) *BatchRepository {
	return &BatchRepository{
		db:        db,
		tableName: tableName,
	}
}

// TableName returns the target table
func (r *BatchRepository) TableName() string {
	return r.tableName
}

// BuildBatchWriteInput builds a BatchWriteItemInput with one put request per item
func BuildBatchWriteInput(tableName string, items []models.Item) *dynamodb.BatchWriteItemInput {
	requests := make([]types.WriteRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}
	return &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{tableName: requests},
	}
}

// WriteBatch issues a single BatchWriteItem call for the items. A returned
// error means nothing in the batch should be considered written.
func (r *BatchRepository) WriteBatch(ctx context.Context, items []models.Item) (*BatchWriteResult, error) {
	if len(items) == 0 {
		return &BatchWriteResult{}, nil
	}

	out, err := r.db.BatchWriteItem(ctx, BuildBatchWriteInput(r.tableName, items))
	if err != nil {
		return nil, fmt.Errorf("batch write to %s: %w", r.tableName, err)
	}

	result := &BatchWriteResult{}
	if out == nil {
		return result, nil
	}
	for _, req := range out.UnprocessedItems[r.tableName] {
		if req.PutRequest != nil {
			result.Unprocessed = append(result.Unprocessed, req.PutRequest.Item)
		}
	}
	return result, nil
}
