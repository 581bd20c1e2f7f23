package alert

import (
	"context"
	"errors"

	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/bodytwin/platform/pkg/observability/metrics"
	"github.com/bodytwin/platform/pkg/registry"
	"github.com/bodytwin/platform/pkg/serving/predictor"
	"github.com/bodytwin/platform/pkg/twin"
)

// Predictor serves the active alert model. It never trains: without an
// active record it returns predictor.ErrNoActiveModel.
type Predictor struct {
	store  *registry.Store
	loader *predictor.Loader
}

func NewPredictor(store *registry.Store, loader *predictor.Loader) *Predictor {
	if loader == nil {
		loader = predictor.NewLoader()
	}
	return &Predictor{store: store, loader: loader}
}

func (p *Predictor) Predict(_ context.Context, t twin.Twin) (models.AlertResult, error) {
	rec, err := predictor.ResolveActive(p.store)
	if err != nil {
		if errors.Is(err, predictor.ErrNoActiveModel) {
			metrics.ObserveNoActiveModel(string(registry.FamilyAlert))
		}
		return models.AlertResult{}, err
	}
	clf, err := p.loader.Classifier(rec.Path)
	if err != nil {
		return models.AlertResult{}, err
	}

	classID := clf.Predict(twin.FeatureVector(t))
	label, err := Label(classID)
	if err != nil {
		return models.AlertResult{}, err
	}
	metrics.ObservePrediction(string(registry.FamilyAlert))
	return models.AlertResult{ClassID: classID, Label: label}, nil
}
