package services

import (
	"csv-to-dynamodb/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// RowEncoder builds write items from source rows
type RowEncoder struct {
	engine InferenceEngineInterface
	hints  models.KeyTypeHints
	opts   InferenceOptions
}

// NewRowEncoder creates a row encoder. hints may be nil or empty, in which
// case every column goes through inference.
func NewRowEncoder(engine InferenceEngineInterface, hints models.KeyTypeHints) *RowEncoder {
	if hints == nil {
		hints = models.KeyTypeHints{}
	}
	return &RowEncoder{
		engine: engine,
		hints:  hints,
		opts:   engine.Options(),
	}
}

// Encode builds one item from a row. A row whose length differs from the
// header is rejected with an *models.ArityError. When nulls are not allowed,
// NULL attributes are left out of the item entirely.
func (r *RowEncoder) Encode(header, row []string) (models.Item, error) {
	if len(row) != len(header) {
		return nil, models.NewArityError(len(header), len(row))
	}

	item := make(models.Item, len(header))
	for i, column := range header {
		value := r.engine.Infer(r.hints.Lookup(column), row[i])
		if _, isNull := value.(*types.AttributeValueMemberNULL); isNull && !r.opts.AllowNull {
			continue
		}
		item[column] = value
	}
	return item, nil
}

// Hints returns the key type hints used by the encoder
func (r *RowEncoder) Hints() models.KeyTypeHints {
	return r.hints
}
