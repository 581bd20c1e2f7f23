// Package twin holds the digital-twin entity that the alert family trains
// on, and the pure functions that turn a twin into model inputs.
package twin

import "time"

// Twin is one person's health snapshot. Optional measurements are pointers
// so an unset value can be told apart from zero.
type Twin struct {
	ID     uint   `gorm:"primaryKey;column:id" json:"id"`
	UserID uint   `gorm:"column:user_id;index" json:"user_id"`
	Name   string `gorm:"column:name" json:"name"`

	Age      *int     `gorm:"column:age" json:"age,omitempty"`
	Gender   *string  `gorm:"column:gender" json:"gender,omitempty"`
	HeightCM *float64 `gorm:"column:height_cm" json:"height_cm,omitempty"`
	WeightKG *float64 `gorm:"column:weight_kg" json:"weight_kg,omitempty"`

	SpO2      *float64 `gorm:"column:spo2" json:"spo2,omitempty"`
	RestingHR *float64 `gorm:"column:resting_hr" json:"resting_hr,omitempty"`

	SleepHours      *float64 `gorm:"column:sleep_hours" json:"sleep_hours,omitempty"`
	ScreenTimeHours *float64 `gorm:"column:screen_time_hours" json:"screen_time_hours,omitempty"`
	ExerciseLevel   *int     `gorm:"column:exercise_level" json:"exercise_level,omitempty"`
	Smoking         *float64 `gorm:"column:smoking" json:"smoking,omitempty"`
	Alcohol         *float64 `gorm:"column:alcohol" json:"alcohol,omitempty"`

	DailySteps         *float64 `gorm:"column:daily_steps" json:"daily_steps,omitempty"`
	OutsideFoodPerWeek *float64 `gorm:"column:outside_food_per_week" json:"outside_food_per_week,omitempty"`
	TeaCoffeePerDay    *float64 `gorm:"column:tea_coffee_per_day" json:"tea_coffee_per_day,omitempty"`
	DietType           *string  `gorm:"column:diet_type" json:"diet_type,omitempty"`

	Income          *float64 `gorm:"column:income" json:"income,omitempty"`
	AQI             *float64 `gorm:"column:aqi" json:"aqi,omitempty"`
	CommuteHours    *float64 `gorm:"column:commute_hours" json:"commute_hours,omitempty"`
	ACExposureHours *float64 `gorm:"column:ac_exposure_hours" json:"ac_exposure_hours,omitempty"`

	HeartScore        *float64 `gorm:"column:heart_score" json:"heart_score,omitempty"`
	MetabolicScore    *float64 `gorm:"column:metabolic_score" json:"metabolic_score,omitempty"`
	MentalStressScore *float64 `gorm:"column:mental_stress_score" json:"mental_stress_score,omitempty"`
	LungRiskScore     *float64 `gorm:"column:lung_risk_score" json:"lung_risk_score,omitempty"`
	OrganLoadScore    *float64 `gorm:"column:organ_load_score" json:"organ_load_score,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Twin) TableName() string {
	return "twins"
}
