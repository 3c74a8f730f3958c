package services

import (
	"csv-to-dynamodb/models"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// InferenceEngineInterface defines the contract for type inference
type InferenceEngineInterface interface {
	Infer(hint *models.AttributeType, text string) types.AttributeValue
	Options() InferenceOptions
}

// RowEncoderInterface defines the contract for building write items
type RowEncoderInterface interface {
	Encode(header, row []string) (models.Item, error)
	Hints() models.KeyTypeHints
}

var (
	_ InferenceEngineInterface = (*InferenceEngine)(nil)
	_ RowEncoderInterface      = (*RowEncoder)(nil)
)

// ServiceContainerInterface defines the main service container contract
type ServiceContainerInterface interface {
	GetInferenceEngine() InferenceEngineInterface
	GetRowEncoder() RowEncoderInterface
}
