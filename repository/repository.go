package repository

import (
	"csv-to-dynamodb/dal"
	"csv-to-dynamodb/models"
	"csv-to-dynamodb/utils/logger"
)

// Repository implements RepositoryContainerInterface
type Repository struct {
	Table  *TableRepository
	Batch  *BatchRepository
	Source *CSVSource
}

func NewRepository(db dal.DatabaseClientInterface, cfg models.Config, log logger.Logger) *Repository {
	return &Repository{
		Table:  NewTableRepository(db, cfg.TableName, log),
		Batch:  NewBatchRepository(db, cfg.TableName),
		Source: NewCSVSource(),
	}
}

func (r *Repository) GetTableRepository() KeyTypeRepositoryInterface {
	return r.Table
}

func (r *Repository) GetBatchRepository() BatchWriteRepositoryInterface {
	return r.Batch
}

func (r *Repository) GetRowSource() RowSourceInterface {
	return r.Source
}
