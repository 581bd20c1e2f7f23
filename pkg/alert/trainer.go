// Package alert trains and serves the alert-risk classifier: a bake-off
// of candidate classifiers over stored twins, with the best macro-F1
// promoted to the alert registry.
package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bodytwin/platform/pkg/common/logger"
	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/bodytwin/platform/pkg/ml/evaluate"
	"github.com/bodytwin/platform/pkg/ml/pipeline"
	"github.com/bodytwin/platform/pkg/ml/preprocess"
	"github.com/bodytwin/platform/pkg/registry"
	"github.com/bodytwin/platform/pkg/tracker"
	"github.com/bodytwin/platform/pkg/training"
	"github.com/bodytwin/platform/pkg/twin"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultExperiment = "bodytwin_alert_models"
	DefaultMinSamples = 10
	DefaultTestSize   = 0.25
)

// TwinSource supplies every stored twin.
type TwinSource interface {
	List(ctx context.Context) ([]twin.Twin, error)
}

type Options struct {
	Seed           int64
	TestSize       float64
	MinSamples     int
	MaxWorkers     int
	BoostedBackend bool
	Experiment     string
	// Roster overrides DefaultRoster when set.
	Roster []Candidate
}

func DefaultOptions() Options {
	return Options{
		Seed:       preprocess.DefaultSeed,
		TestSize:   DefaultTestSize,
		MinSamples: DefaultMinSamples,
		MaxWorkers: 1,
		Experiment: DefaultExperiment,
	}
}

// CandidateResult is one fitted and scored candidate.
type CandidateResult struct {
	Key      string
	Pipeline *pipeline.Classifier
	Accuracy float64
	F1Macro  float64
	Err      error
}

type Trainer struct {
	source    TwinSource
	publisher *training.Publisher
	tracker   tracker.Tracker
	opts      Options
	roster    []Candidate
}

func NewTrainer(source TwinSource, publisher *training.Publisher, tr tracker.Tracker, opts Options) *Trainer {
	if opts.MinSamples <= 0 {
		opts.MinSamples = DefaultMinSamples
	}
	if opts.TestSize <= 0 {
		opts.TestSize = DefaultTestSize
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 1
	}
	if opts.Experiment == "" {
		opts.Experiment = DefaultExperiment
	}
	if tr == nil {
		tr = tracker.Nop{}
	}
	roster := opts.Roster
	if len(roster) == 0 {
		roster = DefaultRoster(opts.BoostedBackend)
	}
	return &Trainer{source: source, publisher: publisher, tracker: tr, opts: opts, roster: roster}
}

// Retrain runs the bake-off and promotes the winner. Fewer than MinSamples
// twins fails with *training.DataInsufficientError before anything is
// fitted or written.
func (t *Trainer) Retrain(ctx context.Context) (models.TrainingSummary, error) {
	log := logger.ForFamily(string(registry.FamilyAlert))

	twins, err := t.source.List(ctx)
	if err != nil {
		return models.TrainingSummary{}, fmt.Errorf("load twins: %w", err)
	}
	if len(twins) < t.opts.MinSamples {
		return models.TrainingSummary{}, &training.DataInsufficientError{Have: len(twins), Need: t.opts.MinSamples}
	}

	X := make([][]float64, len(twins))
	y := make([]int, len(twins))
	for i, tw := range twins {
		X[i] = twin.FeatureVector(tw)
		y[i] = twin.AlertLabel(tw)
	}
	trainIdx, testIdx, err := preprocess.StratifiedSplit(y, t.opts.TestSize, t.opts.Seed)
	if err != nil {
		return models.TrainingSummary{}, fmt.Errorf("split twins: %w", err)
	}
	Xtrain, ytrain := preprocess.Rows(X, trainIdx), preprocess.Rows(y, trainIdx)
	Xtest, ytest := preprocess.Rows(X, testIdx), preprocess.Rows(y, testIdx)

	log.WithFields(map[string]interface{}{
		"samples":    len(twins),
		"train":      len(trainIdx),
		"test":       len(testIdx),
		"candidates": len(t.roster),
	}).Info("Alert bake-off started")

	results, err := t.fitCandidates(ctx, Xtrain, ytrain, Xtest, ytest)
	if err != nil {
		return models.TrainingSummary{}, err
	}

	runs := make([]tracker.Run, len(results))
	candidates := make([]models.CandidateMetrics, 0, len(results))
	for i, res := range results {
		run := tracker.NewRun(t.opts.Experiment, "alert_"+res.Key)
		run.Params["model"] = res.Key
		run.Params["seed"] = fmt.Sprint(t.opts.Seed)
		run.Params["features"] = strings.Join(twin.FeatureNames, ",")
		runs[i] = run
		if res.Err != nil {
			log.WithError(res.Err).WithField("model_type", res.Key).Warn("Candidate failed to fit")
			continue
		}
		run.Metrics["accuracy"] = res.Accuracy
		run.Metrics["f1_macro"] = res.F1Macro
		candidates = append(candidates, models.CandidateMetrics{
			ModelType:       res.Key,
			Accuracy:        res.Accuracy,
			F1Macro:         res.F1Macro,
			ExperimentRunID: run.ID,
		})
		log.WithFields(map[string]interface{}{
			"model_type": res.Key,
			"accuracy":   res.Accuracy,
			"f1_macro":   res.F1Macro,
		}).Info("Candidate evaluated")
	}
	defer t.logRuns(ctx, runs)

	best := SelectBest(results)
	if best < 0 {
		return models.TrainingSummary{}, errors.New("alert bake-off: every candidate failed to fit")
	}
	winner := results[best]

	payload, err := pipeline.EncodeClassifier(winner.Pipeline)
	if err != nil {
		return models.TrainingSummary{}, fmt.Errorf("encode %s: %w", winner.Key, err)
	}
	rec, err := t.publisher.Publish(ctx, "alert_"+winner.Key, payload, registry.ModelRecord{
		ModelType:       winner.Key,
		Accuracy:        registry.Float(winner.Accuracy),
		F1Macro:         registry.Float(winner.F1Macro),
		ExperimentRunID: runs[best].ID,
	})
	if err != nil {
		return models.TrainingSummary{}, fmt.Errorf("publish %s: %w", winner.Key, err)
	}
	runs[best].ArtifactPath = rec.Path

	log.WithFields(map[string]interface{}{
		"best_model": winner.Key,
		"f1_macro":   winner.F1Macro,
		"path":       rec.Path,
	}).Info("Alert model selected")

	return models.TrainingSummary{
		Status:          models.StatusTrainedOnRealDB,
		Family:          string(registry.FamilyAlert),
		BestModel:       winner.Key,
		Accuracy:        registry.Float(winner.Accuracy),
		F1Macro:         registry.Float(winner.F1Macro),
		ModelPath:       rec.Path,
		ExperimentRunID: runs[best].ID,
		Candidates:      candidates,
	}, nil
}

// fitCandidates fits up to MaxWorkers candidates at once. Results keep
// roster order regardless of completion order.
func (t *Trainer) fitCandidates(ctx context.Context, Xtrain [][]float64, ytrain []int, Xtest [][]float64, ytest []int) ([]CandidateResult, error) {
	results := make([]CandidateResult, len(t.roster))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.MaxWorkers)
	for i, c := range t.roster {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = t.fitOne(c, Xtrain, ytrain, Xtest, ytest)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("alert bake-off: %w", err)
	}
	return results, nil
}

func (t *Trainer) fitOne(c Candidate, Xtrain [][]float64, ytrain []int, Xtest [][]float64, ytest []int) CandidateResult {
	start := time.Now()
	pipe := pipeline.NewClassifier(c.Key, c.New(t.opts.Seed))
	if err := pipe.Fit(Xtrain, ytrain); err != nil {
		return CandidateResult{Key: c.Key, Err: err}
	}
	preds := pipe.PredictAll(Xtest)
	logger.ForFamily(string(registry.FamilyAlert)).WithFields(map[string]interface{}{
		"model_type":  c.Key,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Candidate fitted")
	return CandidateResult{
		Key:      c.Key,
		Pipeline: pipe,
		Accuracy: evaluate.Accuracy(ytest, preds),
		F1Macro:  evaluate.F1Macro(ytest, preds),
	}
}

func (t *Trainer) logRuns(ctx context.Context, runs []tracker.Run) {
	for _, run := range runs {
		run.EndedAt = time.Now().UTC()
		if err := t.tracker.LogRun(ctx, run); err != nil {
			logger.ForFamily(string(registry.FamilyAlert)).WithError(err).WithField("run_id", run.ID).Warn("Experiment tracker rejected run")
		}
	}
}

// SelectBest returns the index of the first candidate with the strictly
// highest macro-F1, or -1 when every candidate failed.
func SelectBest(results []CandidateResult) int {
	best := -1
	bestF1 := -1.0
	for i, res := range results {
		if res.Err != nil {
			continue
		}
		if res.F1Macro > bestF1 {
			best = i
			bestF1 = res.F1Macro
		}
	}
	return best
}
