package nutrition

import (
	"strings"

	"github.com/bodytwin/platform/pkg/twin"
)

// DefaultRequiredCalories is used when height, weight or age is unknown.
const DefaultRequiredCalories = 2000.0

// RequiredCalories estimates daily need with the Mifflin-St Jeor BMR and an
// activity factor from the exercise level (1 to 3; unset or 0 counts as 1,
// the same default the alert features use).
func RequiredCalories(t twin.Twin) float64 {
	if t.HeightCM == nil || *t.HeightCM == 0 || t.WeightKG == nil || *t.WeightKG == 0 || t.Age == nil || *t.Age == 0 {
		return DefaultRequiredCalories
	}
	height, weight, age := *t.HeightCM, *t.WeightKG, float64(*t.Age)

	bmr := 10*weight + 6.25*height - 5*age
	if t.Gender != nil && strings.HasPrefix(strings.ToLower(strings.TrimSpace(*t.Gender)), "m") {
		bmr += 5
	} else {
		bmr -= 161
	}

	level := 1
	if t.ExerciseLevel != nil && *t.ExerciseLevel != 0 {
		level = *t.ExerciseLevel
	}
	return bmr * activityFactor(level)
}

// activityFactor maps levels 1 and 2; every other level gets 1.725.
func activityFactor(level int) float64 {
	switch level {
	case 1:
		return 1.375
	case 2:
		return 1.55
	}
	return 1.725
}
