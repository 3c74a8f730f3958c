package services

import (
	"csv-to-dynamodb/models"
)

// Service implements ServiceContainerInterface
type Service struct {
	inferenceEngine InferenceEngineInterface
	rowEncoder      RowEncoderInterface
}

// NewService creates a new service container for one run. The key type
// hints are fixed for the lifetime of the container.
func NewService(config models.Config, hints models.KeyTypeHints) ServiceContainerInterface {
	engine := NewInferenceEngine(InferenceOptions{
		AllowSet:  config.AllowSet,
		AllowNull: config.AllowNull,
	})
	return &Service{
		inferenceEngine: engine,
		rowEncoder:      NewRowEncoder(engine, hints),
	}
}

// GetInferenceEngine returns the inference engine
func (s *Service) GetInferenceEngine() InferenceEngineInterface {
	return s.inferenceEngine
}

// GetRowEncoder returns the row encoder
func (s *Service) GetRowEncoder() RowEncoderInterface {
	return s.rowEncoder
}
