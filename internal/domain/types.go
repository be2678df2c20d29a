package domain

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultName is used for entries logged without a name
const DefaultName = "Food"

// FoodEntry represents one logged food item
type FoodEntry struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Grams    float64 `json:"grams"`
	Calories int     `json:"calories"`
	Protein  int     `json:"protein"`
	Fat      int     `json:"fat"`
	Carb     int     `json:"carb"`
}

// NewFoodEntry creates an entry with a fresh ID
func NewFoodEntry(name string, grams float64, calories, protein, fat, carb int) FoodEntry {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	return FoodEntry{
		ID:       uuid.New().String(),
		Name:     name,
		Grams:    grams,
		Calories: calories,
		Protein:  protein,
		Fat:      fat,
		Carb:     carb,
	}
}

// Totals holds summed calories and macros
type Totals struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Fat      int `json:"fat"`
	Carb     int `json:"carb"`
}

// Add returns t with the entry's fields added
func (t Totals) Add(e FoodEntry) Totals {
	return Totals{
		Calories: t.Calories + e.Calories,
		Protein:  t.Protein + e.Protein,
		Fat:      t.Fat + e.Fat,
		Carb:     t.Carb + e.Carb,
	}
}

// Sum totals a list of entries
func Sum(entries []FoodEntry) Totals {
	var t Totals
	for _, e := range entries {
		t = t.Add(e)
	}
	return t
}

// Targets are the daily goals totals are measured against
type Targets struct {
	Calories int `json:"calories" yaml:"calories"`
	Protein  int `json:"protein" yaml:"protein"`
	Fat      int `json:"fat" yaml:"fat"`
	Carb     int `json:"carb" yaml:"carb"`
}

// DefaultTargets returns 2250 kcal, 180g protein, 70g fat, 225g carbs
func DefaultTargets() Targets {
	return Targets{
		Calories: 2250,
		Protein:  180,
		Fat:      70,
		Carb:     225,
	}
}
