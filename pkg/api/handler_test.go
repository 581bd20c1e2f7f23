package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/bodytwin/platform/pkg/nutrition"
	"github.com/bodytwin/platform/pkg/registry"
	"github.com/bodytwin/platform/pkg/serving"
	"github.com/bodytwin/platform/pkg/serving/predictor"
	"github.com/bodytwin/platform/pkg/training"
	"github.com/bodytwin/platform/pkg/twin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	stores     map[registry.Family]*registry.Store
	retrainErr error
	alertErr   error
	foodItems  []models.MealItem
	triggers   []string
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	dir := t.TempDir()
	alertStore, err := registry.NewStore(registry.FamilyAlert, filepath.Join(dir, "models_meta.json"), registry.NewLocalLocker())
	require.NoError(t, err)
	foodStore, err := registry.NewStore(registry.FamilyFood, filepath.Join(dir, "food_models_meta.json"), registry.NewLocalLocker())
	require.NoError(t, err)
	return &fakePlatform{stores: map[registry.Family]*registry.Store{
		registry.FamilyAlert: alertStore,
		registry.FamilyFood:  foodStore,
	}}
}

func (f *fakePlatform) Retrain(_ context.Context, family registry.Family, trigger string) (models.TrainingSummary, error) {
	f.triggers = append(f.triggers, trigger)
	if f.retrainErr != nil {
		return models.TrainingSummary{}, f.retrainErr
	}
	return models.TrainingSummary{Status: models.StatusTrainedFoodModel, Family: string(family), BestModel: "multi_output_rf"}, nil
}

func (f *fakePlatform) Store(family registry.Family) *registry.Store { return f.stores[family] }

func (f *fakePlatform) PredictAlert(_ context.Context, twinID uint) (models.AlertResult, error) {
	if f.alertErr != nil {
		return models.AlertResult{}, f.alertErr
	}
	return models.AlertResult{ClassID: int(twinID % 4), Label: "routine_consult"}, nil
}

func (f *fakePlatform) PredictFood(_ context.Context, items []models.MealItem) (models.NutritionResult, error) {
	f.foodItems = items
	return models.NutritionResult{Calories: 140, Protein: 4, Carbs: 24, Fat: 1}, nil
}

type fakeMeals struct{}

func (fakeMeals) LogMeal(_ context.Context, twinID uint, mealType string, _ []models.MealItem) (*nutrition.MealLog, *nutrition.DailyCalorieSummary, error) {
	if twinID != 1 {
		return nil, nil, twin.ErrTwinNotFound
	}
	return &nutrition.MealLog{ID: 1, TwinID: 1, MealType: mealType, Calories: 140},
		&nutrition.DailyCalorieSummary{TwinID: 1, TotalCalories: 140, RequiredCalories: 2000, CalorieBalance: -1860}, nil
}

func (fakeMeals) DailySummary(_ context.Context, twinID uint) (*nutrition.DailyCalorieSummary, error) {
	return &nutrition.DailyCalorieSummary{TwinID: twinID, RequiredCalories: 2000, CalorieBalance: -2000}, nil
}

func (fakeMeals) History(context.Context, uint) ([]nutrition.MealLog, error) { return nil, nil }

type fakeRecorder struct{ entries []serving.PredictionLog }

func (f *fakeRecorder) RecordPrediction(_ context.Context, entry serving.PredictionLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRetrainRoutes(t *testing.T) {
	platform := newFakePlatform(t)
	router := NewRouter(NewHandler(platform, nil, nil, nil), RouterOptions{})

	rec := serve(router, http.MethodPost, "/api/mlops/food/retrain", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "multi_output_rf", decode(t, rec)["best_model"])
	assert.Equal(t, []string{training.TriggerHTTP}, platform.triggers)

	platform.retrainErr = fmt.Errorf("retrain alert: %w", &training.DataInsufficientError{Have: 9, Need: 10})
	rec = serve(router, http.MethodPost, "/api/mlops/alert/retrain", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 9.0, body["have"])
	assert.Equal(t, 10.0, body["need"])

	rec = serve(router, http.MethodPost, "/api/mlops/sleep/retrain", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetrainRateLimit(t *testing.T) {
	router := NewRouter(NewHandler(newFakePlatform(t), nil, nil, nil), RouterOptions{RetrainPerSecond: 1.0 / 60, RetrainBurst: 1})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/api/mlops/food/retrain", "").Code)
	rec := serve(router, http.MethodPost, "/api/mlops/alert/retrain", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/mlops/food/models", "").Code)
}

func TestRegistryRoutes(t *testing.T) {
	platform := newFakePlatform(t)
	router := NewRouter(NewHandler(platform, nil, nil, nil), RouterOptions{})

	rec := serve(router, http.MethodGet, "/api/mlops/alert/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"models": []}`, rec.Body.String())

	rec = serve(router, http.MethodGet, "/api/mlops/alert/active", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error": "No active model found"}`, rec.Body.String())

	_, err := platform.stores[registry.FamilyAlert].Promote(context.Background(), registry.ModelRecord{Name: "alert_rf_x.json", ModelType: "rf"})
	require.NoError(t, err)
	rec = serve(router, http.MethodGet, "/api/mlops/alert/active", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rf", decode(t, rec)["model_type"])
}

func TestPredictAlertErrors(t *testing.T) {
	platform := newFakePlatform(t)
	recorder := &fakeRecorder{}
	router := NewRouter(NewHandler(platform, nil, nil, recorder), RouterOptions{})

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodGet, "/api/alerts/predict/abc", "").Code)

	platform.alertErr = predictor.ErrNoActiveModel
	rec := serve(router, http.MethodGet, "/api/alerts/predict/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No active model found", decode(t, rec)["error"])

	platform.alertErr = twin.ErrTwinNotFound
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/alerts/predict/1", "").Code)

	platform.alertErr = &predictor.ArtifactLoadError{Path: "models/gone.json", Err: fmt.Errorf("no such file")}
	rec = serve(router, http.MethodGet, "/api/alerts/predict/1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "models/gone.json")

	platform.alertErr = nil
	_, err := platform.stores[registry.FamilyAlert].Promote(context.Background(), registry.ModelRecord{Name: "alert_knn.json"})
	require.NoError(t, err)
	rec = serve(router, http.MethodGet, "/api/alerts/predict/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode(t, rec)["class_id"])
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, "alert_knn.json", recorder.entries[0].ModelName)
	assert.Equal(t, "5", recorder.entries[0].Subject)
}

func TestPredictFoodDefaultsQuantity(t *testing.T) {
	platform := newFakePlatform(t)
	router := NewRouter(NewHandler(platform, nil, nil, nil), RouterOptions{})

	rec := serve(router, http.MethodPost, "/api/nutrition/predict", `{"items":[{"name":"idli","quantity":2},{"name":"chai"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 140.0, decode(t, rec)["calories"])
	assert.Equal(t, []models.MealItem{{Name: "idli", Quantity: 2}, {Name: "chai", Quantity: 1}}, platform.foodItems)

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodPost, "/api/nutrition/predict", `{"items":`).Code)
}

func TestCalorieRoutes(t *testing.T) {
	router := NewRouter(NewHandler(newFakePlatform(t), fakeMeals{}, nil, nil), RouterOptions{MaxRequestBody: 1 << 20})

	rec := serve(router, http.MethodPost, "/api/calories/meal", `{"twin_id":1,"meal_type":"breakfast","items":[{"name":"idli","quantity":2}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, -1860.0, body["daily_summary"].(map[string]interface{})["calorie_balance"])

	rec = serve(router, http.MethodPost, "/api/calories/meal", `{"twin_id":7,"meal_type":"breakfast","items":[]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, http.MethodPost, "/api/calories/meal", `{"meal_type":"breakfast"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodGet, "/api/calories/daily/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -2000.0, decode(t, rec)["calorie_balance"])

	rec = serve(router, http.MethodGet, "/api/calories/history/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewRouter(NewHandler(newFakePlatform(t), nil, nil, nil), RouterOptions{})

	rec := serve(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = serve(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bodytwin_training_runs_total")

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/calories/daily/1", "").Code)
}
