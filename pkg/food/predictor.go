package food

import (
	"context"
	"errors"
	"sync"

	"github.com/bodytwin/platform/pkg/common/logger"
	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/bodytwin/platform/pkg/observability/metrics"
	"github.com/bodytwin/platform/pkg/registry"
	"github.com/bodytwin/platform/pkg/serving/predictor"
)

// Retrainer runs one food training pass.
type Retrainer interface {
	Retrain(ctx context.Context) (models.TrainingSummary, error)
}

type RetrainerFunc func(ctx context.Context) (models.TrainingSummary, error)

func (f RetrainerFunc) Retrain(ctx context.Context) (models.TrainingSummary, error) { return f(ctx) }

// Predictor serves the active food model, training one first when the
// registry has none.
type Predictor struct {
	catalog   *Catalog
	store     *registry.Store
	loader    *predictor.Loader
	retrainer Retrainer

	bootstrap sync.Mutex
}

func NewPredictor(catalog *Catalog, store *registry.Store, loader *predictor.Loader, retrainer Retrainer) *Predictor {
	if loader == nil {
		loader = predictor.NewLoader()
	}
	return &Predictor{catalog: catalog, store: store, loader: loader, retrainer: retrainer}
}

// EnsureModel returns the active record, training exactly one model when
// there is none. Concurrent callers wait for the same bootstrap run. The
// bool reports whether this call trained.
func (p *Predictor) EnsureModel(ctx context.Context) (registry.ModelRecord, bool, error) {
	rec, err := predictor.ResolveActive(p.store)
	if !errors.Is(err, predictor.ErrNoActiveModel) {
		return rec, false, err
	}

	p.bootstrap.Lock()
	defer p.bootstrap.Unlock()

	rec, err = predictor.ResolveActive(p.store)
	if !errors.Is(err, predictor.ErrNoActiveModel) {
		return rec, false, err
	}

	logger.ForFamily(string(registry.FamilyFood)).WithField("reason", "no_active_model").Info("Bootstrapping food model")
	metrics.ObserveBootstrap()
	if _, err := p.retrainer.Retrain(ctx); err != nil {
		return registry.ModelRecord{}, false, err
	}
	rec, err = predictor.ResolveActive(p.store)
	return rec, err == nil, err
}

// Predict sums predicted nutrients over items. Names not in the catalog
// are skipped and contribute nothing.
func (p *Predictor) Predict(ctx context.Context, items []models.MealItem) (models.NutritionResult, error) {
	rec, _, err := p.EnsureModel(ctx)
	if err != nil {
		return models.NutritionResult{}, err
	}
	reg, err := p.loader.Regressor(rec.Path)
	if err != nil {
		return models.NutritionResult{}, err
	}

	var total models.NutritionResult
	for _, item := range items {
		idx, ok := p.catalog.Index(item.Name)
		if !ok {
			logger.ForFamily(string(registry.FamilyFood)).WithField("item", item.Name).Debug("Skipping unknown food item")
			continue
		}
		out := reg.Predict([]float64{float64(idx), item.Quantity})
		if len(out) < 4 {
			return models.NutritionResult{}, &predictor.ArtifactLoadError{Path: rec.Path, Err: errors.New("regressor returned fewer than four targets")}
		}
		total.Add(models.NutritionResult{Calories: out[0], Protein: out[1], Carbs: out[2], Fat: out[3]})
	}
	metrics.ObservePrediction(string(registry.FamilyFood))
	return total, nil
}
