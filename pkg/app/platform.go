// Package app assembles the registries, trainers and predictors that the
// service and the CLI share.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bodytwin/platform/pkg/alert"
	"github.com/bodytwin/platform/pkg/common/config"
	"github.com/bodytwin/platform/pkg/common/logger"
	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/bodytwin/platform/pkg/food"
	"github.com/bodytwin/platform/pkg/registry"
	"github.com/bodytwin/platform/pkg/serving/predictor"
	"github.com/bodytwin/platform/pkg/tracker"
	"github.com/bodytwin/platform/pkg/training"
	"github.com/bodytwin/platform/pkg/twin"
)

var ErrTwinsUnavailable = errors.New("twin store not configured")

// TwinRepository is what alert training and prediction read twins from.
type TwinRepository interface {
	List(ctx context.Context) ([]twin.Twin, error)
	Get(ctx context.Context, id uint) (*twin.Twin, error)
}

// Deps are the optional collaborators. Nil Twins leaves the alert family
// unusable; nil Tracker, Journal and Locker fall back to no-op or
// in-process implementations.
type Deps struct {
	Twins   TwinRepository
	Tracker tracker.Tracker
	Journal training.Journal
	Locker  registry.Locker
}

type Platform struct {
	twins  TwinRepository
	stores map[registry.Family]*registry.Store
	runner *training.Runner

	catalog        *food.Catalog
	alertTrainer   *alert.Trainer
	foodTrainer    *food.Trainer
	alertPredictor *alert.Predictor
	foodPredictor  *food.Predictor
}

func New(cfg *config.Config, deps Deps) (*Platform, error) {
	twins := deps.Twins
	if twins == nil {
		twins = missingTwins{}
	}

	catalog := food.DefaultCatalog()
	if cfg.FoodCatalogPath != "" {
		loaded, err := food.LoadCatalog(cfg.FoodCatalogPath)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}

	alertPublisher, err := newPublisher(registry.FamilyAlert, cfg.AlertModelsDir, cfg.AlertRegistryFile, deps.Locker)
	if err != nil {
		return nil, err
	}
	foodPublisher, err := newPublisher(registry.FamilyFood, cfg.FoodModelsDir, cfg.FoodRegistryFile, deps.Locker)
	if err != nil {
		return nil, err
	}

	p := &Platform{
		twins: twins,
		stores: map[registry.Family]*registry.Store{
			registry.FamilyAlert: alertPublisher.Store(),
			registry.FamilyFood:  foodPublisher.Store(),
		},
		runner:  training.NewRunner(deps.Journal),
		catalog: catalog,
	}

	p.alertTrainer = alert.NewTrainer(twins, alertPublisher, deps.Tracker, alert.Options{
		Seed:           cfg.TrainingSeed,
		TestSize:       cfg.TrainingTestSize,
		MinSamples:     cfg.AlertMinSamples,
		MaxWorkers:     cfg.TrainingMaxWorkers,
		BoostedBackend: cfg.AlertBoostedBackend,
	})
	p.foodTrainer = food.NewTrainer(catalog, foodPublisher, deps.Tracker, food.Options{
		Seed:     cfg.TrainingSeed,
		TestSize: cfg.TrainingTestSize,
	})

	loader := predictor.NewLoader()
	p.alertPredictor = alert.NewPredictor(alertPublisher.Store(), loader)
	p.foodPredictor = food.NewPredictor(catalog, foodPublisher.Store(), loader, food.RetrainerFunc(func(ctx context.Context) (models.TrainingSummary, error) {
		return p.runner.Run(ctx, string(registry.FamilyFood), training.TriggerBootstrap, p.foodTrainer.Retrain)
	}))

	logger.Log.WithFields(map[string]interface{}{
		"alert_registry": alertPublisher.Store().Path(),
		"food_registry":  foodPublisher.Store().Path(),
		"foods":          catalog.Len(),
	}).Info("Platform ready")
	return p, nil
}

func newPublisher(family registry.Family, dir, file string, locker registry.Locker) (*training.Publisher, error) {
	artifacts, err := training.NewArtifactWriter(dir)
	if err != nil {
		return nil, fmt.Errorf("%s artifacts: %w", family, err)
	}
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, file)
	}
	store, err := registry.NewStore(family, path, locker)
	if err != nil {
		return nil, fmt.Errorf("%s registry: %w", family, err)
	}
	return training.NewPublisher(store, artifacts), nil
}

// Retrain runs one synchronous training of family, journaled under trigger.
func (p *Platform) Retrain(ctx context.Context, family registry.Family, trigger string) (models.TrainingSummary, error) {
	var train training.TrainFunc
	switch family {
	case registry.FamilyAlert:
		train = p.alertTrainer.Retrain
	case registry.FamilyFood:
		train = p.foodTrainer.Retrain
	default:
		return models.TrainingSummary{}, fmt.Errorf("unknown model family %q", family)
	}
	return p.runner.Run(ctx, string(family), trigger, train)
}

// Store returns nil for an unknown family.
func (p *Platform) Store(family registry.Family) *registry.Store {
	return p.stores[family]
}

func (p *Platform) Catalog() *food.Catalog { return p.catalog }

// FoodPredictor is shared with meal logging so both paths bootstrap once.
func (p *Platform) FoodPredictor() *food.Predictor { return p.foodPredictor }

func (p *Platform) PredictAlert(ctx context.Context, twinID uint) (models.AlertResult, error) {
	t, err := p.twins.Get(ctx, twinID)
	if err != nil {
		return models.AlertResult{}, err
	}
	return p.alertPredictor.Predict(ctx, *t)
}

func (p *Platform) PredictFood(ctx context.Context, items []models.MealItem) (models.NutritionResult, error) {
	return p.foodPredictor.Predict(ctx, items)
}

// HandleEvent serves retrain requests arriving on the event bus. Other
// event types are ignored.
func (p *Platform) HandleEvent(ctx context.Context, event models.Event) error {
	var family registry.Family
	switch event.Type {
	case models.EventRetrainAlert:
		family = registry.FamilyAlert
	case models.EventRetrainFood:
		family = registry.FamilyFood
	default:
		logger.Log.WithField("event_type", event.Type).Debug("Ignoring event")
		return nil
	}
	summary, err := p.Retrain(ctx, family, training.TriggerEvent)
	if err != nil {
		return fmt.Errorf("retrain %s from event %s: %w", family, event.ID, err)
	}
	logger.ForFamily(string(family)).WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"best_model": summary.BestModel,
	}).Info("Retrain request served")
	return nil
}

type missingTwins struct{}

func (missingTwins) List(context.Context) ([]twin.Twin, error) { return nil, ErrTwinsUnavailable }

func (missingTwins) Get(context.Context, uint) (*twin.Twin, error) {
	return nil, ErrTwinsUnavailable
}
