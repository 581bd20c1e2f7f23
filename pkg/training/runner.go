package training

import (
	"context"
	"time"

	"github.com/bodytwin/platform/pkg/common/logger"
	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/bodytwin/platform/pkg/observability/metrics"
	"github.com/google/uuid"
)

const (
	TriggerHTTP      = "http"
	TriggerEvent     = "event"
	TriggerCLI       = "cli"
	TriggerBootstrap = "bootstrap"
)

// TrainFunc runs one synchronous training pass for a family.
type TrainFunc func(ctx context.Context) (models.TrainingSummary, error)

// Journal keeps an audit trail of retrain attempts. It never decides
// whether a run succeeds.
type Journal interface {
	Start(ctx context.Context, family, trigger string) (uuid.UUID, error)
	Complete(ctx context.Context, id uuid.UUID, summary models.TrainingSummary) error
	Fail(ctx context.Context, id uuid.UUID, cause error) error
}

// Runner wraps training passes with journaling, metrics and logging.
type Runner struct {
	journal Journal
}

// NewRunner accepts a nil journal.
func NewRunner(journal Journal) *Runner {
	return &Runner{journal: journal}
}

func (r *Runner) Run(ctx context.Context, family, trigger string, train TrainFunc) (models.TrainingSummary, error) {
	log := logger.ForFamily(family).WithField("trigger", trigger)
	start := time.Now()
	log.Info("Training run started")

	var runID uuid.UUID
	if r.journal != nil {
		id, err := r.journal.Start(ctx, family, trigger)
		if err != nil {
			log.WithError(err).Warn("failed to journal training start")
		}
		runID = id
	}

	summary, err := train(ctx)
	metrics.ObserveTraining(family, err)
	if err != nil {
		log.WithError(err).Error("Training run failed")
		if r.journal != nil && runID != uuid.Nil {
			if jerr := r.journal.Fail(ctx, runID, err); jerr != nil {
				log.WithError(jerr).Warn("failed to journal training failure")
			}
		}
		return models.TrainingSummary{}, err
	}

	log.WithFields(map[string]interface{}{
		"best_model":  summary.BestModel,
		"model_path":  summary.ModelPath,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Training run completed")
	if r.journal != nil && runID != uuid.Nil {
		if jerr := r.journal.Complete(ctx, runID, summary); jerr != nil {
			log.WithError(jerr).Warn("failed to journal training completion")
		}
	}
	return summary, nil
}

// RepositoryJournal stores the audit trail in Postgres.
type RepositoryJournal struct {
	repo *Repository
}

func NewRepositoryJournal(repo *Repository) *RepositoryJournal {
	return &RepositoryJournal{repo: repo}
}

func (j *RepositoryJournal) Start(ctx context.Context, family, trigger string) (uuid.UUID, error) {
	run := &RunModel{
		ID:        uuid.New(),
		Family:    family,
		Trigger:   trigger,
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := j.repo.Create(ctx, run); err != nil {
		return uuid.Nil, err
	}
	return run.ID, nil
}

func (j *RepositoryJournal) Complete(ctx context.Context, id uuid.UUID, summary models.TrainingSummary) error {
	return j.repo.Finish(ctx, id, StatusCompleted, map[string]interface{}{
		"best_model":        summary.BestModel,
		"artifact_path":     summary.ModelPath,
		"experiment_run_id": summary.ExperimentRunID,
		"metrics":           summaryMetrics(summary),
	})
}

func (j *RepositoryJournal) Fail(ctx context.Context, id uuid.UUID, cause error) error {
	return j.repo.Finish(ctx, id, StatusFailed, map[string]interface{}{
		"error_message": cause.Error(),
	})
}

func summaryMetrics(summary models.TrainingSummary) map[string]interface{} {
	out := map[string]interface{}{}
	if summary.Accuracy != nil {
		out["accuracy"] = *summary.Accuracy
	}
	if summary.F1Macro != nil {
		out["f1_macro"] = *summary.F1Macro
	}
	if summary.MAE != nil {
		out["mae"] = *summary.MAE
	}
	return out
}
