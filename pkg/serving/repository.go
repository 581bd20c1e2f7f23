package serving

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog is the persistence model for served predictions.
type PredictionLog struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey;column:id" json:"id"`
	Family    string            `gorm:"column:family;index" json:"family"`
	Subject   string            `gorm:"column:subject" json:"subject,omitempty"`
	ModelName string            `gorm:"column:model_name" json:"model_name"`
	Request   datatypes.JSONMap `gorm:"column:request" json:"request,omitempty"`
	Response  datatypes.JSONMap `gorm:"column:response" json:"response,omitempty"`
	LatencyMs float64           `gorm:"column:latency_ms" json:"latency_ms"`
	CreatedAt time.Time         `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// Recorder keeps prediction logs; handlers log and ignore its errors.
type Recorder interface {
	RecordPrediction(ctx context.Context, entry PredictionLog) error
}

// Repository handles prediction logs queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, entry PredictionLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

// Recent returns the most recent prediction logs for family up to limit.
func (r *Repository) Recent(ctx context.Context, family string, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if family != "" {
		query = query.Where("family = ?", family)
	}
	err := query.Find(&logs).Error
	return logs, err
}
