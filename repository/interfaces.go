package repository

import (
	"context"

	"csv-to-dynamodb/models"
)

// KeyTypeRepositoryInterface defines the contract for reading key attribute types
type KeyTypeRepositoryInterface interface {
	DescribeKeyTypes(ctx context.Context) (models.KeyTypeHints, error)
}

// BatchWriteRepositoryInterface defines the contract for batch writes
type BatchWriteRepositoryInterface interface {
	WriteBatch(ctx context.Context, items []models.Item) (*BatchWriteResult, error)
	TableName() string
}

// RowSourceInterface defines the contract for reading source rows
type RowSourceInterface interface {
	ReadCSV(path string) (*models.SourceTable, error)
}

// RepositoryContainerInterface defines the contract for the repository container
type RepositoryContainerInterface interface {
	GetTableRepository() KeyTypeRepositoryInterface
	GetBatchRepository() BatchWriteRepositoryInterface
	GetRowSource() RowSourceInterface
}

var (
	_ KeyTypeRepositoryInterface    = (*TableRepository)(nil)
	_ BatchWriteRepositoryInterface = (*BatchRepository)(nil)
	_ RowSourceInterface            = (*CSVSource)(nil)
)
