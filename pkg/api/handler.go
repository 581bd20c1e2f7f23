// Package api exposes retraining, registry inspection, predictions and
// meal logging over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bodytwin/platform/pkg/common/logger"
	"github.com/bodytwin/platform/pkg/common/models"
	"github.com/bodytwin/platform/pkg/nutrition"
	"github.com/bodytwin/platform/pkg/registry"
	"github.com/bodytwin/platform/pkg/serving"
	"github.com/bodytwin/platform/pkg/serving/predictor"
	"github.com/bodytwin/platform/pkg/training"
	"github.com/bodytwin/platform/pkg/twin"
	"github.com/gorilla/mux"
)

// Platform is the model registry and training core as the HTTP layer sees it.
type Platform interface {
	Retrain(ctx context.Context, family registry.Family, trigger string) (models.TrainingSummary, error)
	Store(family registry.Family) *registry.Store
	PredictAlert(ctx context.Context, twinID uint) (models.AlertResult, error)
	PredictFood(ctx context.Context, items []models.MealItem) (models.NutritionResult, error)
}

type Meals interface {
	LogMeal(ctx context.Context, twinID uint, mealType string, items []models.MealItem) (*nutrition.MealLog, *nutrition.DailyCalorieSummary, error)
	DailySummary(ctx context.Context, twinID uint) (*nutrition.DailyCalorieSummary, error)
	History(ctx context.Context, twinID uint) ([]nutrition.MealLog, error)
}

type RunLister interface {
	List(ctx context.Context, family string, limit int) ([]training.RunModel, error)
}

type Handler struct {
	platform Platform
	meals    Meals
	runs     RunLister
	recorder serving.Recorder
}

// NewHandler accepts nil meals, runs and recorder; the routes that need
// them are then not registered.
func NewHandler(platform Platform, meals Meals, runs RunLister, recorder serving.Recorder) *Handler {
	return &Handler{platform: platform, meals: meals, runs: runs, recorder: recorder}
}

func (h *Handler) Register(r *mux.Router) {
	mlops := r.PathPrefix("/api/mlops").Subrouter()
	mlops.HandleFunc("/{family}/models", h.handleListModels).Methods(http.MethodGet)
	mlops.HandleFunc("/{family}/active", h.handleActiveModel).Methods(http.MethodGet)
	if h.runs != nil {
		mlops.HandleFunc("/runs", h.handleListRuns).Methods(http.MethodGet)
	}

	r.HandleFunc("/api/alerts/predict/{twin_id}", h.handlePredictAlert).Methods(http.MethodGet)
	r.HandleFunc("/api/nutrition/predict", h.handlePredictFood).Methods(http.MethodPost)

	if h.meals != nil {
		r.HandleFunc("/api/calories/meal", h.handleLogMeal).Methods(http.MethodPost)
		r.HandleFunc("/api/calories/daily/{twin_id}", h.handleDailySummary).Methods(http.MethodGet)
		r.HandleFunc("/api/calories/history/{twin_id}", h.handleHistory).Methods(http.MethodGet)
	}
}

// RegisterRetrain mounts the retrain routes behind guard, which limits how
// often full training runs can be requested.
func (h *Handler) RegisterRetrain(r *mux.Router, guard func(http.Handler) http.Handler) {
	var handler http.Handler = http.HandlerFunc(h.handleRetrain)
	if guard != nil {
		handler = guard(handler)
	}
	r.Handle("/api/mlops/{family}/retrain", handler).Methods(http.MethodPost)
}

func familyVar(w http.ResponseWriter, r *http.Request) (registry.Family, bool) {
	family, ok := registry.ParseFamily(mux.Vars(r)["family"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "unknown model family"})
	}
	return family, ok
}

func twinIDVar(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["twin_id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid twin id"})
		return 0, false
	}
	return uint(id), true
}

func (h *Handler) handleRetrain(w http.ResponseWriter, r *http.Request) {
	family, ok := familyVar(w, r)
	if !ok {
		return
	}
	summary, err := h.platform.Retrain(r.Context(), family, training.TriggerHTTP)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleListModels(w http.ResponseWriter, r *http.Request) {
	family, ok := familyVar(w, r)
	if !ok {
		return
	}
	records, err := h.platform.Store(family).List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": records})
}

func (h *Handler) handleActiveModel(w http.ResponseWriter, r *http.Request) {
	family, ok := familyVar(w, r)
	if !ok {
		return
	}
	rec, err := predictor.ResolveActive(h.platform.Store(family))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	family := r.URL.Query().Get("family")
	if family != "" {
		if _, ok := registry.ParseFamily(family); !ok {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "unknown model family"})
			return
		}
	}
	runs, err := h.runs.List(r.Context(), family, parseLimit(r, 50))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": runs})
}

func (h *Handler) handlePredictAlert(w http.ResponseWriter, r *http.Request) {
	twinID, ok := twinIDVar(w, r)
	if !ok {
		return
	}
	start := time.Now()
	result, err := h.platform.PredictAlert(r.Context(), twinID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.record(r.Context(), registry.FamilyAlert, strconv.FormatUint(uint64(twinID), 10),
		map[string]interface{}{"twin_id": twinID},
		map[string]interface{}{"class_id": result.ClassID, "label": result.Label}, start)
	writeJSON(w, http.StatusOK, result)
}

type predictFoodRequest struct {
	Items []models.MealItem `json:"items"`
}

func (h *Handler) handlePredictFood(w http.ResponseWriter, r *http.Request) {
	var req predictFoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid request"})
		return
	}
	start := time.Now()
	result, err := h.platform.PredictFood(r.Context(), req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	h.record(r.Context(), registry.FamilyFood, "",
		map[string]interface{}{"items": len(req.Items)},
		map[string]interface{}{"calories": result.Calories, "protein": result.Protein, "carbs": result.Carbs, "fat": result.Fat}, start)
	writeJSON(w, http.StatusOK, result)
}

type logMealRequest struct {
	TwinID   uint              `json:"twin_id"`
	MealType string            `json:"meal_type"`
	Items    []models.MealItem `json:"items"`
}

func (h *Handler) handleLogMeal(w http.ResponseWriter, r *http.Request) {
	var req logMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid request"})
		return
	}
	if req.TwinID == 0 || req.MealType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "twin_id and meal_type are required"})
		return
	}
	meal, daily, err := h.meals.LogMeal(r.Context(), req.TwinID, req.MealType, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"meal": meal, "daily_summary": daily})
}

func (h *Handler) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	twinID, ok := twinIDVar(w, r)
	if !ok {
		return
	}
	daily, err := h.meals.DailySummary(r.Context(), twinID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, daily)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	twinID, ok := twinIDVar(w, r)
	if !ok {
		return
	}
	meals, err := h.meals.History(r.Context(), twinID)
	if err != nil {
		writeError(w, err)
		return
	}
	if meals == nil {
		meals = []nutrition.MealLog{}
	}
	writeJSON(w, http.StatusOK, meals)
}

func (h *Handler) record(ctx context.Context, family registry.Family, subject string, request, response map[string]interface{}, start time.Time) {
	if h.recorder == nil {
		return
	}
	rec, err := predictor.ResolveActive(h.platform.Store(family))
	if err != nil {
		return
	}
	entry := serving.PredictionLog{
		Family:    string(family),
		Subject:   subject,
		ModelName: rec.Name,
		Request:   request,
		Response:  response,
		LatencyMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if err := h.recorder.RecordPrediction(ctx, entry); err != nil {
		logger.Log.WithError(err).Warn("failed to record prediction")
	}
}

// writeError maps domain errors onto status codes. Expected states (too
// little data, nothing trained yet, unknown twin) are client-visible;
// everything else is a 500 with the cause logged.
func writeError(w http.ResponseWriter, err error) {
	var gate *training.DataInsufficientError
	switch {
	case errors.As(err, &gate):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error": err.Error(),
			"have":  gate.Have,
			"need":  gate.Need,
		})
	case errors.Is(err, predictor.ErrNoActiveModel):
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "No active model found"})
	case errors.Is(err, twin.ErrTwinNotFound):
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "Twin not found"})
	case errors.Is(err, predictor.ErrArtifactLoad):
		logger.Log.WithError(err).Error("active model artifact unavailable")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":  "model artifact unavailable",
			"detail": err.Error(),
		})
	default:
		logger.Log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "internal error"})
	}
}

func parseLimit(r *http.Request, def int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
