package twin

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrTwinNotFound = errors.New("twin not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Twin{})
}

func (r *Repository) Create(ctx context.Context, t *Twin) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// List returns every stored twin; training reads the whole table.
func (r *Repository) List(ctx context.Context) ([]Twin, error) {
	var twins []Twin
	result := r.db.WithContext(ctx).Order("id").Find(&twins)
	return twins, result.Error
}

func (r *Repository) Get(ctx context.Context, id uint) (*Twin, error) {
	var t Twin
	result := r.db.WithContext(ctx).First(&t, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrTwinNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &t, nil
}
