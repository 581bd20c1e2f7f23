package training

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&RunModel{})
}

func (r *Repository) Create(ctx context.Context, run *RunModel) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *Repository) Finish(ctx context.Context, runID uuid.UUID, status string, fields map[string]interface{}) error {
	completed := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       status,
		"completed_at": completed,
	}
	for k, v := range fields {
		if m, ok := v.(map[string]interface{}); ok {
			v = datatypes.JSONMap(m)
		}
		updates[k] = v
	}
	return r.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", runID).Updates(updates).Error
}

func (r *Repository) List(ctx context.Context, family string, limit int) ([]RunModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunModel
	query := r.db.WithContext(ctx).Order("started_at desc").Limit(limit)
	if family != "" {
		query = query.Where("family = ?", family)
	}
	result := query.Find(&runs)
	return runs, result.Error
}
