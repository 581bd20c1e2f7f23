package nutrition

import (
	"context"
	"errors"
	"time"

	"github.com/bodytwin/platform/pkg/twin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db    *gorm.DB
	twins *twin.Repository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, twins: twin.NewRepository(db)}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&MealLog{}, &DailyCalorieSummary{})
}

func (r *Repository) GetTwin(ctx context.Context, id uint) (*twin.Twin, error) {
	return r.twins.Get(ctx, id)
}

// RecordMeal stores meal and folds its calories into the day's summary in
// one transaction, creating the summary with required if it is missing.
func (r *Repository) RecordMeal(ctx context.Context, meal *MealLog, required float64) (*DailyCalorieSummary, error) {
	var daily DailyCalorieSummary
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(meal).Error; err != nil {
			return err
		}
		baseline := newDailySummary(meal.TwinID, meal.Date, required)
		if err := insertDailyIfMissing(tx, &baseline).Error; err != nil {
			return err
		}
		if err := selectDailyForUpdate(tx, meal.TwinID, meal.Date, &daily).Error; err != nil {
			return err
		}
		daily.addCalories(meal.Calories)
		return tx.Save(&daily).Error
	})
	if err != nil {
		return nil, err
	}
	return &daily, nil
}

// insertDailyIfMissing leans on idx_twin_day: when another writer already
// created the row, the insert is a no-op and the caller reads theirs.
func insertDailyIfMissing(tx *gorm.DB, daily *DailyCalorieSummary) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "twin_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(daily)
}

func selectDailyForUpdate(tx *gorm.DB, twinID uint, day time.Time, dest *DailyCalorieSummary) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("twin_id = ? AND date = ?", twinID, day).
		First(dest)
}

// FindDaily returns nil without error when no summary exists for day.
func (r *Repository) FindDaily(ctx context.Context, twinID uint, day time.Time) (*DailyCalorieSummary, error) {
	var daily DailyCalorieSummary
	result := r.db.WithContext(ctx).Where("twin_id = ? AND date = ?", twinID, day).First(&daily)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &daily, nil
}

// EnsureDaily stores daily unless a summary for the same twin and day
// exists, and returns whichever row is stored.
func (r *Repository) EnsureDaily(ctx context.Context, daily *DailyCalorieSummary) (*DailyCalorieSummary, error) {
	db := r.db.WithContext(ctx)
	if err := insertDailyIfMissing(db, daily).Error; err != nil {
		return nil, err
	}
	var stored DailyCalorieSummary
	if err := db.Where("twin_id = ? AND date = ?", daily.TwinID, daily.Date).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *Repository) History(ctx context.Context, twinID uint) ([]MealLog, error) {
	var meals []MealLog
	result := r.db.WithContext(ctx).
		Where("twin_id = ?", twinID).
		Order("date desc").
		Order("created_at desc").
		Find(&meals)
	return meals, result.Error
}
