// Package food trains and serves the meal nutrition regressor. Its
// training data is synthesized from the food catalog, so unlike the alert
// family it can always train, and the predictor trains on first use.
package food

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bodytwin/platform/pkg/common/logger"
	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/bodytwin/platform/pkg/ml/ensemble"
	"github.com/bodytwin/platform/pkg/ml/evaluate"
	"github.com/bodytwin/platform/pkg/ml/pipeline"
	"github.com/bodytwin/platform/pkg/ml/preprocess"
	"github.com/bodytwin/platform/pkg/registry"
	"github.com/bodytwin/platform/pkg/tracker"
	"github.com/bodytwin/platform/pkg/training"
)

const (
	DefaultExperiment  = "bodytwin_food_models"
	DefaultNEstimators = 200
	ModelType          = "multi_output_rf"
	artifactPrefix     = "food_model"
)

type Options struct {
	Seed        int64
	TestSize    float64
	NEstimators int
	Experiment  string
}

func DefaultOptions() Options {
	return Options{
		Seed:        preprocess.DefaultSeed,
		TestSize:    0.25,
		NEstimators: DefaultNEstimators,
		Experiment:  DefaultExperiment,
	}
}

type Trainer struct {
	catalog   *Catalog
	publisher *training.Publisher
	tracker   tracker.Tracker
	opts      Options
}

func NewTrainer(catalog *Catalog, publisher *training.Publisher, tr tracker.Tracker, opts Options) *Trainer {
	if opts.TestSize <= 0 {
		opts.TestSize = 0.25
	}
	if opts.NEstimators <= 0 {
		opts.NEstimators = DefaultNEstimators
	}
	if opts.Experiment == "" {
		opts.Experiment = DefaultExperiment
	}
	if tr == nil {
		tr = tracker.Nop{}
	}
	return &Trainer{catalog: catalog, publisher: publisher, tracker: tr, opts: opts}
}

func (t *Trainer) Retrain(ctx context.Context) (models.TrainingSummary, error) {
	log := logger.ForFamily(string(registry.FamilyFood))

	X, Y := BuildDataset(t.catalog)
	trainIdx, testIdx, err := preprocess.TrainTestSplit(len(X), t.opts.TestSize, t.opts.Seed)
	if err != nil {
		return models.TrainingSummary{}, fmt.Errorf("split food dataset: %w", err)
	}

	reg := pipeline.NewRegressor(ModelType, ensemble.NewMultiOutputForest(t.opts.NEstimators, t.opts.Seed))
	if err := reg.Fit(preprocess.Rows(X, trainIdx), preprocess.Rows(Y, trainIdx)); err != nil {
		return models.TrainingSummary{}, err
	}
	mae := evaluate.MeanAbsoluteError(preprocess.Rows(Y, testIdx), reg.PredictAll(preprocess.Rows(X, testIdx)))

	run := tracker.NewRun(t.opts.Experiment, "food_calorie_model")
	run.Params["base_model"] = ensemble.AlgorithmForestRegressor
	run.Params["n_estimators"] = strconv.Itoa(t.opts.NEstimators)
	run.Params["n_foods"] = strconv.Itoa(t.catalog.Len())
	run.Metrics["mae"] = mae

	payload, err := pipeline.EncodeRegressor(reg)
	if err != nil {
		return models.TrainingSummary{}, fmt.Errorf("encode food model: %w", err)
	}
	rec, err := t.publisher.Publish(ctx, artifactPrefix, payload, registry.ModelRecord{
		ModelType:       ModelType,
		MAE:             registry.Float(mae),
		ExperimentRunID: run.ID,
	})
	if err != nil {
		return models.TrainingSummary{}, fmt.Errorf("publish food model: %w", err)
	}

	run.ArtifactPath = rec.Path
	run.EndedAt = time.Now().UTC()
	if err := t.tracker.LogRun(ctx, run); err != nil {
		log.WithError(err).WithField("run_id", run.ID).Warn("Experiment tracker rejected run")
	}

	log.WithFields(map[string]interface{}{
		"mae":     mae,
		"samples": len(X),
		"path":    rec.Path,
	}).Info("Food model trained")

	return models.TrainingSummary{
		Status:          models.StatusTrainedFoodModel,
		Family:          string(registry.FamilyFood),
		BestModel:       ModelType,
		MAE:             registry.Float(mae),
		ModelPath:       rec.Path,
		ExperimentRunID: run.ID,
	}, nil
}
