package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

type familyCounters struct {
	trainingRuns     atomic.Int64
	trainingFailures atomic.Int64
	predictions      atomic.Int64
	noActiveModel    atomic.Int64
}

var (
	families = map[string]*familyCounters{
		"alert": {},
		"food":  {},
	}
	familyOrder = []string{"alert", "food"}

	bootstrapTrainings atomic.Int64
)

func counters(family string) *familyCounters {
	return families[family]
}

// ObserveTraining counts one finished training run; err marks it failed.
func ObserveTraining(family string, err error) {
	c := counters(family)
	if c == nil {
		return
	}
	c.trainingRuns.Add(1)
	if err != nil {
		c.trainingFailures.Add(1)
	}
}

func ObserveBootstrap() {
	bootstrapTrainings.Add(1)
}

func ObservePrediction(family string) {
	if c := counters(family); c != nil {
		c.predictions.Add(1)
	}
}

func ObserveNoActiveModel(family string) {
	if c := counters(family); c != nil {
		c.noActiveModel.Add(1)
	}
}

type Snapshot struct {
	TrainingRuns     int64
	TrainingFailures int64
	Predictions      int64
	NoActiveModel    int64
}

func FamilySnapshot(family string) Snapshot {
	c := counters(family)
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		TrainingRuns:     c.trainingRuns.Load(),
		TrainingFailures: c.trainingFailures.Load(),
		Predictions:      c.predictions.Load(),
		NoActiveModel:    c.noActiveModel.Load(),
	}
}

func BootstrapTrainings() int64 {
	return bootstrapTrainings.Load()
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP bodytwin_training_runs_total Number of training runs finished per model family.\n")
	fmt.Fprintf(w, "# TYPE bodytwin_training_runs_total counter\n")
	for _, f := range familyOrder {
		fmt.Fprintf(w, "bodytwin_training_runs_total{family=%q} %d\n", f, families[f].trainingRuns.Load())
	}

	fmt.Fprintf(w, "# HELP bodytwin_training_failures_total Number of training runs that returned an error.\n")
	fmt.Fprintf(w, "# TYPE bodytwin_training_failures_total counter\n")
	for _, f := range familyOrder {
		fmt.Fprintf(w, "bodytwin_training_failures_total{family=%q} %d\n", f, families[f].trainingFailures.Load())
	}

	fmt.Fprintf(w, "# HELP bodytwin_predictions_total Number of predictions served per model family.\n")
	fmt.Fprintf(w, "# TYPE bodytwin_predictions_total counter\n")
	for _, f := range familyOrder {
		fmt.Fprintf(w, "bodytwin_predictions_total{family=%q} %d\n", f, families[f].predictions.Load())
	}

	fmt.Fprintf(w, "# HELP bodytwin_no_active_model_total Number of predictions refused because no model was active.\n")
	fmt.Fprintf(w, "# TYPE bodytwin_no_active_model_total counter\n")
	for _, f := range familyOrder {
		fmt.Fprintf(w, "bodytwin_no_active_model_total{family=%q} %d\n", f, families[f].noActiveModel.Load())
	}

	fmt.Fprintf(w, "# HELP bodytwin_food_bootstrap_trainings_total Number of food trainings started because no model was active.\n")
	fmt.Fprintf(w, "# TYPE bodytwin_food_bootstrap_trainings_total counter\n")
	fmt.Fprintf(w, "bodytwin_food_bootstrap_trainings_total %d\n", bootstrapTrainings.Load())
}
