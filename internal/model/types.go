package model

import (
	"fmt"

	gt "gorgonia.org/tensor"
)

// Predictor runs inference on a (N, 28, 28) float32 tensor.
type Predictor interface {
	Predict(input *gt.Dense) (*gt.Dense, error)
}

// Metadata describes the loaded graph. A -1 dimension is dynamic.
type Metadata struct {
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
}

// LoadError means the artifact at Path could not be turned into a session.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type PredictionRequest struct {
	InputData any `json:"input_data"`
}

type PredictionResponse struct {
	Predictions any `json:"predictions"`
}
