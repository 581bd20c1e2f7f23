package food

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Food holds nutrient values for one unit of a dish.
type Food struct {
	Name     string  `yaml:"name" json:"name"`
	Calories float64 `yaml:"calories" json:"calories"`
	Protein  float64 `yaml:"protein" json:"protein"`
	Carbs    float64 `yaml:"carbs" json:"carbs"`
	Fat      float64 `yaml:"fat" json:"fat"`
}

type catalogFile struct {
	Foods []Food `yaml:"foods"`
}

// Catalog is read-only after construction. A food's index is its position
// in the list and doubles as a model feature.
type Catalog struct {
	foods []Food
	index map[string]int
}

func NewCatalog(foods []Food) (*Catalog, error) {
	if len(foods) == 0 {
		return nil, errors.New("food catalog is empty")
	}
	c := &Catalog{foods: make([]Food, len(foods)), index: make(map[string]int, len(foods))}
	for i, f := range foods {
		name := NormalizeName(f.Name)
		if name == "" {
			return nil, fmt.Errorf("food catalog entry %d has no name", i)
		}
		if _, dup := c.index[name]; dup {
			return nil, fmt.Errorf("food catalog lists %q twice", name)
		}
		f.Name = name
		c.foods[i] = f
		c.index[name] = i
	}
	return c, nil
}

// DefaultCatalog is the built-in breakfast table.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Food{
		{Name: "idli", Calories: 70, Protein: 2.0, Carbs: 12.0, Fat: 0.5},
		{Name: "dosa", Calories: 130, Protein: 3.0, Carbs: 20.0, Fat: 4.0},
		{Name: "poha", Calories: 180, Protein: 4.0, Carbs: 30.0, Fat: 5.0},
		{Name: "upma", Calories: 200, Protein: 5.0, Carbs: 28.0, Fat: 7.0},
		{Name: "aloo_paratha", Calories: 220, Protein: 5.0, Carbs: 30.0, Fat: 9.0},
		{Name: "chai", Calories: 80, Protein: 2.0, Carbs: 10.0, Fat: 3.0},
		{Name: "coffee", Calories: 60, Protein: 2.0, Carbs: 6.0, Fat: 2.0},
		{Name: "bread_slice", Calories: 75, Protein: 2.5, Carbs: 14.0, Fat: 1.0},
		{Name: "omelette", Calories: 120, Protein: 8.0, Carbs: 1.0, Fat: 9.0},
		{Name: "curd_bowl", Calories: 90, Protein: 5.0, Carbs: 4.0, Fat: 5.0},
		{Name: "paratha_plain", Calories: 190, Protein: 4.0, Carbs: 28.0, Fat: 7.0},
		{Name: "banana", Calories: 100, Protein: 1.2, Carbs: 25.0, Fat: 0.3},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog reads a YAML catalog; an empty path yields DefaultCatalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read food catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parse food catalog: %w", err)
	}
	return NewCatalog(file.Foods)
}

// NormalizeName trims, lowercases and joins words with underscores.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func (c *Catalog) Len() int { return len(c.foods) }

func (c *Catalog) Foods() []Food {
	out := make([]Food, len(c.foods))
	copy(out, c.foods)
	return out
}

// Index looks up a normalized name.
func (c *Catalog) Index(name string) (int, bool) {
	i, ok := c.index[NormalizeName(name)]
	return i, ok
}
