package models

import (
	"encoding/json"
	"time"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // experiment.run, retrain.alert, retrain.food
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

const (
	EventExperimentRun = "experiment.run"
	EventRetrainAlert  = "retrain.alert"
	EventRetrainFood   = "retrain.food"
)

// Model Training
const (
	StatusTrainedOnRealDB  = "trained_on_real_db"
	StatusTrainedFoodModel = "trained_food_model"
)

type CandidateMetrics struct {
	ModelType       string  `json:"model_type"`
	Accuracy        float64 `json:"accuracy"`
	F1Macro         float64 `json:"f1_macro"`
	ExperimentRunID string  `json:"experiment_run_id"`
}

type TrainingSummary struct {
	Status          string             `json:"status"`
	Family          string             `json:"family"`
	BestModel       string             `json:"best_model"`
	Accuracy        *float64           `json:"accuracy,omitempty"`
	F1Macro         *float64           `json:"f1_macro,omitempty"`
	MAE             *float64           `json:"mae,omitempty"`
	ModelPath       string             `json:"model_path"`
	ExperimentRunID string             `json:"experiment_run_id"`
	Candidates      []CandidateMetrics `json:"candidates,omitempty"`
}

// Model Serving
type AlertResult struct {
	ClassID int    `json:"class_id"`
	Label   string `json:"label"`
}

type MealItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
}

// UnmarshalJSON defaults a missing quantity to one unit.
func (m *MealItem) UnmarshalJSON(data []byte) error {
	type raw MealItem
	item := raw{Quantity: 1.0}
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*m = MealItem(item)
	return nil
}

type NutritionResult struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (n *NutritionResult) Add(other NutritionResult) {
	n.Calories += other.Calories
	n.Protein += other.Protein
	n.Carbs += other.Carbs
	n.Fat += other.Fat
}
