// Package costing prices recipes from their ingredient lines.
//
// A recipe yields a number of discrete units. Quantities are entered and shown
// as totals for the whole batch, but stored per unit. Every function here names
// the basis it expects; mixing the two silently produces wrong totals.
package costing

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/dukerupert/clubledger/internal/model"
)

// ErrInvalidYield is returned when a recipe yields fewer than one unit.
var ErrInvalidYield = errors.New("yield quantity must be at least 1")

// Line is one ingredient of a recipe. ID is the stored association id and is
// zero for lines that have not been saved yet.
type Line struct {
	ID            int64   `json:"id,omitempty"`
	IngredientID  int64   `json:"ingredient_id"`
	Name          string  `json:"name"`
	UnitOfMeasure string  `json:"unit_of_measure"`
	UnitCost      float64 `json:"unit_cost"`
	Quantity      float64 `json:"quantity"`
}

// Cost is the line's quantity priced at the ingredient's unit cost, in
// whatever basis Quantity holds.
func (l Line) Cost() float64 {
	return l.Quantity * l.UnitCost
}

// ValidateYield rejects yields below one.
func ValidateYield(yield int) error {
	if yield < 1 {
		return ErrInvalidYield
	}
	return nil
}

// ParseQuantity reads a user-entered decimal. Blank, malformed, negative and
// non-finite input all read as 0. A comma is accepted as decimal separator.
func ParseQuantity(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// UnitQuantity converts a batch total to the amount used by one yield unit.
func UnitQuantity(total float64, yield int) float64 {
	if yield <= 0 {
		return 0
	}
	return total / float64(yield)
}

// BatchCost sums the cost of lines holding TOTAL batch quantities.
func BatchCost(totalLines []Line) float64 {
	return sumCost(totalLines)
}

// UnitCost sums the cost of lines holding PER-UNIT quantities, giving the
// cost of one yield unit.
func UnitCost(perUnitLines []Line) float64 {
	return sumCost(perUnitLines)
}

// BatchCostFromPerUnit prices a whole batch from stored per-unit lines.
func BatchCostFromPerUnit(perUnitLines []Line, yield int) float64 {
	if yield <= 0 {
		return 0
	}
	return UnitCost(perUnitLines) * float64(yield)
}

func sumCost(lines []Line) float64 {
	var total float64
	for _, l := range lines {
		total += l.Cost()
	}
	return total
}

// NormalizeForPersistence returns a copy of totalLines with each quantity
// divided by yield. The result is what gets stored.
func NormalizeForPersistence(totalLines []Line, yield int) []Line {
	out := make([]Line, len(totalLines))
	for i, l := range totalLines {
		l.Quantity = UnitQuantity(l.Quantity, yield)
		out[i] = l
	}
	return out
}

// DenormalizeForEditing returns a copy of perUnitLines with each quantity
// multiplied by yield, reconstructing the batch totals shown for editing.
func DenormalizeForEditing(perUnitLines []Line, yield int) []Line {
	out := make([]Line, len(perUnitLines))
	for i, l := range perUnitLines {
		if yield <= 0 {
			l.Quantity = 0
		} else {
			l.Quantity *= float64(yield)
		}
		out[i] = l
	}
	return out
}

// FromRecipeIngredients converts stored recipe lines to per-unit costing lines.
func FromRecipeIngredients(ris []model.RecipeIngredient) []Line {
	lines := make([]Line, len(ris))
	for i, ri := range ris {
		lines[i] = Line{
			ID:            ri.ID,
			IngredientID:  ri.IngredientID,
			Name:          ri.Name,
			UnitOfMeasure: ri.UnitOfMeasure,
			UnitCost:      ri.UnitCost,
			Quantity:      ri.QuantityUsed,
		}
	}
	return lines
}
