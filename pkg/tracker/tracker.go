// Package tracker records experiment runs: one run per fitted candidate,
// with its parameters, held-out metrics and artifact location. Tracking is
// instrumentation only; callers log failures and carry on.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/bodytwin/platform/pkg/common/logger"
	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Run struct {
	ID           string             `json:"run_id"`
	Experiment   string             `json:"experiment"`
	Name         string             `json:"run_name"`
	Params       map[string]string  `json:"params,omitempty"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	ArtifactPath string             `json:"artifact_path,omitempty"`
	StartedAt    time.Time          `json:"started_at"`
	EndedAt      time.Time          `json:"ended_at"`
}

// NewRun assigns the run id up front so it is known even when logging fails.
func NewRun(experiment, name string) Run {
	return Run{
		ID:         uuid.New().String(),
		Experiment: experiment,
		Name:       name,
		Params:     map[string]string{},
		Metrics:    map[string]float64{},
		StartedAt:  time.Now().UTC(),
	}
}

type Tracker interface {
	LogRun(ctx context.Context, run Run) error
}

type Nop struct{}

func (Nop) LogRun(context.Context, Run) error { return nil }

// LogTracker writes runs to the structured log.
type LogTracker struct {
	entry *logrus.Entry
}

func NewLogTracker() *LogTracker {
	return &LogTracker{entry: logger.WithField("component", "tracker")}
}

func (t *LogTracker) LogRun(_ context.Context, run Run) error {
	fields := logrus.Fields{
		"run_id":     run.ID,
		"experiment": run.Experiment,
		"run_name":   run.Name,
	}
	for k, v := range run.Params {
		fields["param."+k] = v
	}
	for k, v := range run.Metrics {
		fields["metric."+k] = v
	}
	if run.ArtifactPath != "" {
		fields["artifact_path"] = run.ArtifactPath
	}
	t.entry.WithFields(fields).Info("Experiment run logged")
	return nil
}

// EventPublisher is the slice of kafka.Producer the tracker needs.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// KafkaTracker publishes each run as an experiment.run event.
type KafkaTracker struct {
	publisher EventPublisher
	source    string
}

func NewKafkaTracker(publisher EventPublisher, source string) *KafkaTracker {
	return &KafkaTracker{publisher: publisher, source: source}
}

func (t *KafkaTracker) LogRun(ctx context.Context, run Run) error {
	metrics := make(map[string]interface{}, len(run.Metrics))
	for k, v := range run.Metrics {
		metrics[k] = v
	}
	params := make(map[string]interface{}, len(run.Params))
	for k, v := range run.Params {
		params[k] = v
	}
	return t.publisher.PublishEvent(ctx, models.EventExperimentRun, t.source, map[string]interface{}{
		"run_id":        run.ID,
		"experiment":    run.Experiment,
		"run_name":      run.Name,
		"params":        params,
		"metrics":       metrics,
		"artifact_path": run.ArtifactPath,
		"started_at":    run.StartedAt,
		"ended_at":      run.EndedAt,
	})
}

// Multi fans a run out to every tracker and joins their errors.
type Multi []Tracker

func (m Multi) LogRun(ctx context.Context, run Run) error {
	var errs []error
	for _, t := range m {
		if err := t.LogRun(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
