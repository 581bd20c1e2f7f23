package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/bodytwin/platform/pkg/twin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

type fakeStore struct {
	twins  map[uint]twin.Twin
	meals  []MealLog
	dailys map[uint]*DailyCalorieSummary
}

func newFakeStore(twins ...twin.Twin) *fakeStore {
	s := &fakeStore{twins: map[uint]twin.Twin{}, dailys: map[uint]*DailyCalorieSummary{}}
	for _, t := range twins {
		s.twins[t.ID] = t
	}
	return s
}

func (s *fakeStore) GetTwin(_ context.Context, id uint) (*twin.Twin, error) {
	t, ok := s.twins[id]
	if !ok {
		return nil, twin.ErrTwinNotFound
	}
	return &t, nil
}

func (s *fakeStore) RecordMeal(_ context.Context, meal *MealLog, required float64) (*DailyCalorieSummary, error) {
	meal.ID = uint(len(s.meals) + 1)
	s.meals = append(s.meals, *meal)
	daily, ok := s.dailys[meal.TwinID]
	if !ok {
		daily = &DailyCalorieSummary{TwinID: meal.TwinID, Date: meal.Date, RequiredCalories: required}
		s.dailys[meal.TwinID] = daily
	}
	daily.addCalories(meal.Calories)
	copied := *daily
	return &copied, nil
}

func (s *fakeStore) FindDaily(_ context.Context, twinID uint, _ time.Time) (*DailyCalorieSummary, error) {
	return s.dailys[twinID], nil
}

func (s *fakeStore) EnsureDaily(_ context.Context, daily *DailyCalorieSummary) (*DailyCalorieSummary, error) {
	if existing, ok := s.dailys[daily.TwinID]; ok {
		return existing, nil
	}
	s.dailys[daily.TwinID] = daily
	return daily, nil
}

// lateStore misses the summary on lookup, as when another request creates
// it between FindDaily and EnsureDaily.
type lateStore struct{ *fakeStore }

func (lateStore) FindDaily(context.Context, uint, time.Time) (*DailyCalorieSummary, error) {
	return nil, nil
}

func (s *fakeStore) History(_ context.Context, twinID uint) ([]MealLog, error) {
	var out []MealLog
	for _, m := range s.meals {
		if m.TwinID == twinID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fixedPredictor struct {
	perItem models.NutritionResult
	err     error
}

func (p fixedPredictor) Predict(_ context.Context, items []models.MealItem) (models.NutritionResult, error) {
	if p.err != nil {
		return models.NutritionResult{}, p.err
	}
	var total models.NutritionResult
	for _, item := range items {
		total.Add(models.NutritionResult{
			Calories: p.perItem.Calories * item.Quantity,
			Protein:  p.perItem.Protein * item.Quantity,
			Carbs:    p.perItem.Carbs * item.Quantity,
			Fat:      p.perItem.Fat * item.Quantity,
		})
	}
	return total, nil
}

func referenceTwin() twin.Twin {
	return twin.Twin{ID: 1, Age: ptr(30), Gender: ptr("male"), HeightCM: ptr(170.0), WeightKG: ptr(70.0), ExerciseLevel: ptr(1)}
}

func TestRequiredCaloriesScenario(t *testing.T) {
	assert.InDelta(t, 2292.8125, RequiredCalories(referenceTwin()), 1e-9)
}

func TestRequiredCaloriesVariants(t *testing.T) {
	female := referenceTwin()
	female.Gender = ptr("Female")
	assert.InDelta(t, (1667.5-166)*1.375, RequiredCalories(female), 1e-9)

	zero := referenceTwin()
	zero.ExerciseLevel = ptr(0)
	assert.InDelta(t, 2292.8125, RequiredCalories(zero), 1e-9)

	moderate := referenceTwin()
	moderate.ExerciseLevel = ptr(2)
	assert.InDelta(t, 1667.5*1.55, RequiredCalories(moderate), 1e-9)

	athlete := referenceTwin()
	athlete.ExerciseLevel = ptr(5)
	assert.InDelta(t, 1667.5*1.725, RequiredCalories(athlete), 1e-9)

	unset := referenceTwin()
	unset.ExerciseLevel = nil
	assert.InDelta(t, 2292.8125, RequiredCalories(unset), 1e-9)

	assert.Equal(t, DefaultRequiredCalories, RequiredCalories(twin.Twin{Age: ptr(30)}))
}

func TestLogMealUpdatesDailyBalance(t *testing.T) {
	store := newFakeStore(referenceTwin())
	svc := NewService(store, fixedPredictor{perItem: models.NutritionResult{Calories: 100, Protein: 2, Carbs: 10, Fat: 1}})
	ctx := context.Background()

	meal, daily, err := svc.LogMeal(ctx, 1, "breakfast", []models.MealItem{{Name: "idli", Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, 200.0, meal.Calories)
	assert.Equal(t, 200.0, daily.TotalCalories)
	assert.InDelta(t, 200-2292.8125, daily.CalorieBalance, 1e-9)

	var items []models.MealItem
	require.NoError(t, json.Unmarshal(meal.Items, &items))
	assert.Equal(t, []models.MealItem{{Name: "idli", Quantity: 2}}, items)

	_, daily, err = svc.LogMeal(ctx, 1, "lunch", []models.MealItem{{Name: "dosa", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, 300.0, daily.TotalCalories)
	assert.InDelta(t, 300-2292.8125, daily.CalorieBalance, 1e-9)
}

func TestLogMealUnknownTwin(t *testing.T) {
	svc := NewService(newFakeStore(), fixedPredictor{})

	_, _, err := svc.LogMeal(context.Background(), 99, "breakfast", nil)
	assert.ErrorIs(t, err, ErrTwinNotFound)
}

func TestLogMealPredictionFailure(t *testing.T) {
	store := newFakeStore(referenceTwin())
	svc := NewService(store, fixedPredictor{err: errors.New("artifact gone")})

	_, _, err := svc.LogMeal(context.Background(), 1, "breakfast", []models.MealItem{{Name: "idli", Quantity: 1}})
	assert.ErrorContains(t, err, "artifact gone")
	assert.Empty(t, store.meals)
}

func TestDailySummaryBaseline(t *testing.T) {
	store := newFakeStore(referenceTwin())
	svc := NewService(store, fixedPredictor{})
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 23, 30, 0, 0, time.UTC) }

	daily, err := svc.DailySummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, daily.TotalCalories)
	assert.InDelta(t, -2292.8125, daily.CalorieBalance, 1e-9)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), daily.Date)

	_, err = svc.DailySummary(context.Background(), 42)
	assert.ErrorIs(t, err, ErrTwinNotFound)
}

func TestDailySummaryKeepsConcurrentlyCreatedRow(t *testing.T) {
	store := newFakeStore(referenceTwin())
	store.dailys[1] = &DailyCalorieSummary{ID: 7, TwinID: 1, TotalCalories: 300, RequiredCalories: 2292.8125, CalorieBalance: 300 - 2292.8125}
	svc := NewService(lateStore{store}, fixedPredictor{})

	daily, err := svc.DailySummary(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint(7), daily.ID)
	assert.Equal(t, 300.0, daily.TotalCalories)
	assert.Len(t, store.dailys, 1)
}

func TestHistoryNewestFirst(t *testing.T) {
	store := newFakeStore(referenceTwin())
	svc := NewService(store, fixedPredictor{perItem: models.NutritionResult{Calories: 50}})
	clock := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	for _, mealType := range []string{"breakfast", "lunch", "dinner"} {
		_, _, err := svc.LogMeal(context.Background(), 1, mealType, []models.MealItem{{Name: "chai", Quantity: 1}})
		require.NoError(t, err)
	}

	history, err := svc.History(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "dinner", history[0].MealType)
	assert.Equal(t, "breakfast", history[2].MealType)
}
