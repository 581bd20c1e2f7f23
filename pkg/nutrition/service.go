// Package nutrition logs meals against a twin and keeps the daily calorie
// balance, using the food model to price each meal.
package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bodytwin/platform/pkg/common/logger"
	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/bodytwin/platform/pkg/twin"
)

var ErrTwinNotFound = twin.ErrTwinNotFound

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	GetTwin(ctx context.Context, id uint) (*twin.Twin, error)
	RecordMeal(ctx context.Context, meal *MealLog, required float64) (*DailyCalorieSummary, error)
	FindDaily(ctx context.Context, twinID uint, day time.Time) (*DailyCalorieSummary, error)
	EnsureDaily(ctx context.Context, daily *DailyCalorieSummary) (*DailyCalorieSummary, error)
	History(ctx context.Context, twinID uint) ([]MealLog, error)
}

type Predictor interface {
	Predict(ctx context.Context, items []models.MealItem) (models.NutritionResult, error)
}

type Service struct {
	store     Store
	predictor Predictor
	now       func() time.Time
}

func NewService(store Store, predictor Predictor) *Service {
	return &Service{store: store, predictor: predictor, now: time.Now}
}

func (s *Service) today() time.Time {
	y, m, d := s.now().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LogMeal prices items with the food model, stores the meal and updates
// today's summary.
func (s *Service) LogMeal(ctx context.Context, twinID uint, mealType string, items []models.MealItem) (*MealLog, *DailyCalorieSummary, error) {
	t, err := s.store.GetTwin(ctx, twinID)
	if err != nil {
		return nil, nil, err
	}
	nutrition, err := s.predictor.Predict(ctx, items)
	if err != nil {
		return nil, nil, fmt.Errorf("predict meal nutrition: %w", err)
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, nil, err
	}

	meal := &MealLog{
		TwinID:    twinID,
		Date:      s.today(),
		MealType:  mealType,
		Items:     raw,
		Calories:  nutrition.Calories,
		Protein:   nutrition.Protein,
		Carbs:     nutrition.Carbs,
		Fat:       nutrition.Fat,
		CreatedAt: s.now().UTC(),
	}
	daily, err := s.store.RecordMeal(ctx, meal, RequiredCalories(*t))
	if err != nil {
		return nil, nil, fmt.Errorf("record meal: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"twin_id":  twinID,
		"meal":     mealType,
		"calories": meal.Calories,
		"balance":  daily.CalorieBalance,
	}).Info("Meal logged")
	return meal, daily, nil
}

// DailySummary returns today's summary, starting a zero-intake one if the
// twin has not logged anything yet.
func (s *Service) DailySummary(ctx context.Context, twinID uint) (*DailyCalorieSummary, error) {
	day := s.today()
	daily, err := s.store.FindDaily(ctx, twinID, day)
	if err != nil {
		return nil, err
	}
	if daily != nil {
		return daily, nil
	}

	t, err := s.store.GetTwin(ctx, twinID)
	if err != nil {
		return nil, err
	}
	baseline := newDailySummary(twinID, day, RequiredCalories(*t))
	return s.store.EnsureDaily(ctx, &baseline)
}

func (s *Service) History(ctx context.Context, twinID uint) ([]MealLog, error) {
	return s.store.History(ctx, twinID)
}
