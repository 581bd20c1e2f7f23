// Package registry keeps the append-only list of trained models for one
// model family and decides which of them serves predictions.
package registry

import "time"

type Family string

const (
	FamilyAlert Family = "alert"
	FamilyFood  Family = "food"
)

func ParseFamily(s string) (Family, bool) {
	switch Family(s) {
	case FamilyAlert:
		return FamilyAlert, true
	case FamilyFood:
		return FamilyFood, true
	}
	return "", false
}

// ModelRecord describes one trained artifact. Alert records carry accuracy
// and macro-F1, food records carry MAE.
type ModelRecord struct {
	Name            string    `json:"name"`
	Path            string    `json:"path"`
	ModelType       string    `json:"model_type,omitempty"`
	Accuracy        *float64  `json:"accuracy,omitempty"`
	F1Macro         *float64  `json:"f1_macro,omitempty"`
	MAE             *float64  `json:"mae,omitempty"`
	ExperimentRunID string    `json:"experiment_run_id"`
	CreatedAt       time.Time `json:"created_at"`
	Active          bool      `json:"active"`
}

type Registry struct {
	Models []ModelRecord `json:"models"`
}

// Active returns the last record flagged active. More than one active
// record means a promotion went wrong somewhere; readers still get an
// answer.
func (r Registry) Active() (ModelRecord, bool) {
	for i := len(r.Models) - 1; i >= 0; i-- {
		if r.Models[i].Active {
			return r.Models[i], true
		}
	}
	return ModelRecord{}, false
}

// Promote returns a copy of reg with every existing record deactivated and
// rec appended as the single active record. It is the only place that sets
// Active to true.
func Promote(reg Registry, rec ModelRecord) Registry {
	models := make([]ModelRecord, 0, len(reg.Models)+1)
	for _, m := range reg.Models {
		m.Active = false
		models = append(models, m)
	}
	rec.Active = true
	models = append(models, rec)
	return Registry{Models: models}
}

func Float(v float64) *float64 {
	return &v
}
