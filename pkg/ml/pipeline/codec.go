package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bodytwin/platform/pkg/ml"
	"github.com/bodytwin/platform/pkg/ml/ensemble"
	"github.com/bodytwin/platform/pkg/ml/linear"
	"github.com/bodytwin/platform/pkg/ml/neighbors"
	"github.com/bodytwin/platform/pkg/ml/preprocess"
)

const (
	KindClassifier = "classifier"
	KindRegressor  = "regressor"
)

var (
	ErrUnknownAlgorithm = errors.New("pipeline: unknown algorithm")
	ErrInvalidModel     = errors.New("pipeline: invalid model")
)

type envelope struct {
	Kind      string                     `json:"kind"`
	ModelType string                     `json:"model_type"`
	Algorithm string                     `json:"algorithm"`
	Scaler    *preprocess.StandardScaler `json:"scaler,omitempty"`
	Model     json.RawMessage            `json:"model"`
}

func EncodeClassifier(c *Classifier) ([]byte, error) {
	return encode(KindClassifier, c.ModelType, c.Model.Algorithm(), c.Scaler, c.Model)
}

func EncodeRegressor(r *Regressor) ([]byte, error) {
	return encode(KindRegressor, r.ModelType, r.Model.Algorithm(), nil, r.Model)
}

func encode(kind, modelType, algorithm string, scaler *preprocess.StandardScaler, model any) ([]byte, error) {
	raw, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("encode %s model: %w", algorithm, err)
	}
	return json.Marshal(envelope{Kind: kind, ModelType: modelType, Algorithm: algorithm, Scaler: scaler, Model: raw})
}

func DecodeClassifier(data []byte) (*Classifier, error) {
	env, err := decodeEnvelope(data, KindClassifier)
	if err != nil {
		return nil, err
	}
	var model ml.Classifier
	switch env.Algorithm {
	case linear.AlgorithmLogistic:
		model = &linear.Logistic{}
	case ensemble.AlgorithmRandomForest, ensemble.AlgorithmExtraTrees:
		model = &ensemble.Forest{}
	case ensemble.AlgorithmGradientBoosting:
		model = &ensemble.GradientBoosting{}
	case ensemble.AlgorithmAdaBoost:
		model = &ensemble.AdaBoost{}
	case neighbors.AlgorithmKNN:
		model = &neighbors.KNN{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, env.Algorithm)
	}
	if err := json.Unmarshal(env.Model, model); err != nil {
		return nil, fmt.Errorf("decode %s model: %w", env.Algorithm, err)
	}
	if env.Scaler == nil {
		return nil, fmt.Errorf("decode %s: missing scaler", env.ModelType)
	}
	if err := env.Scaler.Validate(); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", env.ModelType, ErrInvalidModel, err)
	}
	if err := validate(model, env.Scaler.Width()); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.ModelType, err)
	}
	return &Classifier{ModelType: env.ModelType, Scaler: env.Scaler, Model: model}, nil
}

func DecodeRegressor(data []byte) (*Regressor, error) {
	env, err := decodeEnvelope(data, KindRegressor)
	if err != nil {
		return nil, err
	}
	var model ml.MultiRegressor
	switch env.Algorithm {
	case ensemble.AlgorithmMultiOutput:
		model = &ensemble.MultiOutputForest{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, env.Algorithm)
	}
	if err := json.Unmarshal(env.Model, model); err != nil {
		return nil, fmt.Errorf("decode %s model: %w", env.Algorithm, err)
	}
	if err := validate(model, 0); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.ModelType, err)
	}
	return &Regressor{ModelType: env.ModelType, Model: model}, nil
}

// validate rejects artifacts that parse as JSON but would fail at predict
// time, such as an empty scaler or a forest with no trees.
func validate(model any, width int) error {
	v, ok := model.(ml.Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(width); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return nil
}

func decodeEnvelope(data []byte, kind string) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("decode artifact: %w", err)
	}
	if env.Kind != kind {
		return envelope{}, fmt.Errorf("decode artifact: kind %q, want %q", env.Kind, kind)
	}
	return env, nil
}
