package food

// Multipliers are the portion sizes sampled for every catalog entry.
var Multipliers = []float64{0.5, 1.0, 1.5, 2.0, 3.0}

// BuildDataset returns features [food index, quantity] and targets
// [calories, protein, carbs, fat] scaled by quantity.
func BuildDataset(c *Catalog) ([][]float64, [][]float64) {
	X := make([][]float64, 0, c.Len()*len(Multipliers))
	Y := make([][]float64, 0, c.Len()*len(Multipliers))
	for idx, f := range c.foods {
		for _, qty := range Multipliers {
			X = append(X, []float64{float64(idx), qty})
			Y = append(Y, []float64{f.Calories * qty, f.Protein * qty, f.Carbs * qty, f.Fat * qty})
		}
	}
	return X, Y
}
