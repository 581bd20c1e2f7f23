package training

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunModel is the audit row kept for every retrain attempt.
type RunModel struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Family          string            `gorm:"column:family;index" json:"family"`
	Trigger         string            `gorm:"column:trigger" json:"trigger"`
	Status          string            `gorm:"column:status" json:"status"`
	BestModel       string            `gorm:"column:best_model" json:"best_model,omitempty"`
	Metrics         datatypes.JSONMap `gorm:"column:metrics" json:"metrics,omitempty"`
	ArtifactPath    string            `gorm:"column:artifact_path" json:"artifact_path,omitempty"`
	ExperimentRunID string            `gorm:"column:experiment_run_id" json:"experiment_run_id,omitempty"`
	ErrorMessage    string            `gorm:"column:error_message" json:"error_message,omitempty"`
	StartedAt       time.Time         `gorm:"column:started_at" json:"started_at"`
	CompletedAt     *time.Time        `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (RunModel) TableName() string {
	return "training_runs"
}
