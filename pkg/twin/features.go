package twin

import "strings"

// FeatureNames lists the columns produced by FeatureVector, in order.
var FeatureNames = []string{
	"age", "gender", "bmi", "spo2", "resting_hr",
	"sleep_hours", "screen_time_hours", "exercise_level", "smoking", "alcohol",
	"daily_steps", "outside_food_per_week", "tea_coffee_per_day", "diet_type",
	"income", "aqi", "commute_hours", "ac_exposure_hours",
	"heart_score", "metabolic_score", "mental_stress_score", "lung_risk_score", "organ_load_score",
}

// Organ-load thresholds separating the four alert classes.
var organLoadThresholds = []float64{0.4, 0.6, 0.8}

// FeatureVector maps a twin to the alert model's input. Unset or zero
// measurements take population defaults.
func FeatureVector(t Twin) []float64 {
	return []float64{
		float64(intOr(t.Age, 0)),
		float64(EncodeGender(t.Gender)),
		BMI(t),
		or(t.SpO2, 97),
		or(t.RestingHR, 72),

		or(t.SleepHours, 7),
		or(t.ScreenTimeHours, 6),
		float64(intOr(t.ExerciseLevel, 1)),
		or(t.Smoking, 0),
		or(t.Alcohol, 0),

		or(t.DailySteps, 4000),
		or(t.OutsideFoodPerWeek, 3),
		or(t.TeaCoffeePerDay, 2),
		float64(EncodeDiet(t.DietType)),

		or(t.Income, 600000),
		or(t.AQI, 120),
		or(t.CommuteHours, 1.0),
		or(t.ACExposureHours, 4.0),

		or(t.HeartScore, 0.3),
		or(t.MetabolicScore, 0.3),
		or(t.MentalStressScore, 0.3),
		or(t.LungRiskScore, 0.3),
		or(t.OrganLoadScore, 0.4),
	}
}

// AlertLabel counts how many organ-load thresholds the twin reaches.
func AlertLabel(t Twin) int {
	load := or(t.OrganLoadScore, 0)
	label := 0
	for _, threshold := range organLoadThresholds {
		if load >= threshold {
			label++
		}
	}
	return label
}

// BMI is 0 when height or weight is unknown.
func BMI(t Twin) float64 {
	h := or(t.HeightCM, 0)
	w := or(t.WeightKG, 0)
	if h <= 0 || w <= 0 {
		return 0
	}
	m := h / 100
	return w / (m * m)
}

// EncodeGender: male 0, female 1, anything else 2. Missing counts as male.
func EncodeGender(g *string) int {
	if g == nil || *g == "" {
		return 0
	}
	s := strings.ToLower(strings.TrimSpace(*g))
	switch {
	case strings.HasPrefix(s, "m"):
		return 0
	case strings.HasPrefix(s, "f"):
		return 1
	}
	return 2
}

// EncodeDiet: veg 0, egg 1, non-veg 2, unknown 3.
func EncodeDiet(d *string) int {
	if d == nil || *d == "" {
		return 3
	}
	s := strings.ToLower(*d)
	switch {
	case strings.Contains(s, "veg") && !strings.Contains(s, "non"):
		return 0
	case strings.Contains(s, "egg"):
		return 1
	case strings.Contains(s, "non"):
		return 2
	}
	return 3
}

func or(v *float64, def float64) float64 {
	if v == nil || *v == 0 {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil || *v == 0 {
		return def
	}
	return *v
}
