package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMealItemDefaultsQuantity(t *testing.T) {
	var items []MealItem
	err := json.Unmarshal([]byte(`[{"name":"idli"},{"name":"dosa","quantity":2.5},{"name":"chai","quantity":0}]`), &items)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, 1.0, items[0].Quantity)
	assert.Equal(t, 2.5, items[1].Quantity)
	assert.Equal(t, 0.0, items[2].Quantity)
}

func TestNutritionResultAdd(t *testing.T) {
	total := NutritionResult{Calories: 10, Protein: 1}
	total.Add(NutritionResult{Calories: 5, Protein: 2, Carbs: 3, Fat: 4})
	assert.Equal(t, NutritionResult{Calories: 15, Protein: 3, Carbs: 3, Fat: 4}, total)
}
