// Package pipeline chains preprocessing with an estimator and stores the
// fitted result as a self-describing JSON artifact.
package pipeline

import (
	"fmt"

	"github.com/bodytwin/platform/pkg/ml"
	"github.com/bodytwin/platform/pkg/ml/preprocess"
)

// Classifier standardises features before handing them to Model.
type Classifier struct {
	ModelType string
	Scaler    *preprocess.StandardScaler
	Model     ml.Classifier
}

func NewClassifier(modelType string, model ml.Classifier) *Classifier {
	return &Classifier{ModelType: modelType, Scaler: &preprocess.StandardScaler{}, Model: model}
}

func (c *Classifier) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return ml.ErrEmptyDataset
	}
	c.Scaler.Fit(X)
	if err := c.Model.Fit(c.Scaler.TransformAll(X), y); err != nil {
		return fmt.Errorf("fit %s: %w", c.ModelType, err)
	}
	return nil
}

func (c *Classifier) Predict(x []float64) int {
	return c.Model.Predict(c.Scaler.Transform(x))
}

func (c *Classifier) PredictAll(X [][]float64) []int {
	out := make([]int, len(X))
	for i, x := range X {
		out[i] = c.Predict(x)
	}
	return out
}

// Regressor wraps a multi-output model; features go in raw.
type Regressor struct {
	ModelType string
	Model     ml.MultiRegressor
}

func NewRegressor(modelType string, model ml.MultiRegressor) *Regressor {
	return &Regressor{ModelType: modelType, Model: model}
}

func (r *Regressor) Fit(X [][]float64, Y [][]float64) error {
	if err := r.Model.Fit(X, Y); err != nil {
		return fmt.Errorf("fit %s: %w", r.ModelType, err)
	}
	return nil
}

func (r *Regressor) Predict(x []float64) []float64 {
	return r.Model.Predict(x)
}

func (r *Regressor) PredictAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, x := range X {
		out[i] = r.Predict(x)
	}
	return out
}
