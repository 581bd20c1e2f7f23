package nutrition

import (
	"time"

	"gorm.io/datatypes"
)

// MealLog is one logged meal with the nutrients predicted for it.
type MealLog struct {
	ID        uint           `gorm:"primaryKey;column:id" json:"id"`
	TwinID    uint           `gorm:"column:twin_id;index;not null" json:"twin_id"`
	Date      time.Time      `gorm:"column:date;type:date;index" json:"date"`
	MealType  string         `gorm:"column:meal_type;not null" json:"meal_type"`
	Items     datatypes.JSON `gorm:"column:food_json;not null" json:"items"`
	Calories  float64        `gorm:"column:calories" json:"calories"`
	Protein   float64        `gorm:"column:protein" json:"protein"`
	Carbs     float64        `gorm:"column:carbs" json:"carbs"`
	Fat       float64        `gorm:"column:fat" json:"fat"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (MealLog) TableName() string {
	return "meal_logs"
}

// DailyCalorieSummary tracks one twin's intake against its need for a day.
// CalorieBalance is TotalCalories minus RequiredCalories. There is at most
// one row per twin and day.
type DailyCalorieSummary struct {
	ID               uint      `gorm:"primaryKey;column:id" json:"id"`
	TwinID           uint      `gorm:"column:twin_id;uniqueIndex:idx_twin_day;not null" json:"twin_id"`
	Date             time.Time `gorm:"column:date;type:date;uniqueIndex:idx_twin_day" json:"date"`
	TotalCalories    float64   `gorm:"column:total_calories" json:"total_calories"`
	RequiredCalories float64   `gorm:"column:required_calories" json:"required_calories"`
	CalorieBalance   float64   `gorm:"column:calorie_balance" json:"calorie_balance"`
}

func (DailyCalorieSummary) TableName() string {
	return "daily_calorie_summary"
}

// newDailySummary is a day with nothing eaten yet.
func newDailySummary(twinID uint, day time.Time, required float64) DailyCalorieSummary {
	return DailyCalorieSummary{TwinID: twinID, Date: day, RequiredCalories: required, CalorieBalance: -required}
}

func (s *DailyCalorieSummary) addCalories(kcal float64) {
	s.TotalCalories += kcal
	s.CalorieBalance = s.TotalCalories - s.RequiredCalories
}
