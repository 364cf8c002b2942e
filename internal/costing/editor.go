package costing

import (
	"strings"

	"github.com/dukerupert/clubledger/internal/model"
)

// Editor holds the ingredient lines of one recipe while it is being edited.
// Lines carry TOTAL batch quantities. An ingredient appears at most once.
type Editor struct {
	Yield int
	Lines []Line
}

// NewEditor starts an editor from lines already in the total basis.
func NewEditor(yield int, totalLines []Line) *Editor {
	e := &Editor{Yield: yield}
	for _, l := range totalLines {
		if e.indexOf(l.IngredientID) >= 0 {
			continue
		}
		if l.Quantity < 0 {
			l.Quantity = 0
		}
		e.Lines = append(e.Lines, l)
	}
	return e
}

func (e *Editor) indexOf(ingredientID int64) int {
	for i, l := range e.Lines {
		if l.IngredientID == ingredientID {
			return i
		}
	}
	return -1
}

// Has reports whether the ingredient is already on the recipe.
func (e *Editor) Has(ingredientID int64) bool {
	return e.indexOf(ingredientID) >= 0
}

// AddIngredient appends a line for ing with quantity 0 and returns its index.
// If ing is already present nothing changes; the existing index is returned
// with added=false.
func (e *Editor) AddIngredient(ing model.Ingredient) (index int, added bool) {
	if i := e.indexOf(ing.ID); i >= 0 {
		return i, false
	}
	e.Lines = append(e.Lines, Line{
		IngredientID:  ing.ID,
		Name:          ing.Name,
		UnitOfMeasure: ing.UnitOfMeasure,
		UnitCost:      ing.UnitCost,
	})
	return len(e.Lines) - 1, true
}

// SetQuantity parses raw and stores it as the total quantity of line index.
// Unparseable input becomes 0. An index out of range is ignored.
func (e *Editor) SetQuantity(index int, raw string) {
	e.SetQuantityValue(index, ParseQuantity(raw))
}

// SetQuantityValue stores q as the total quantity of line index. Negative
// values are clamped to 0.
func (e *Editor) SetQuantityValue(index int, q float64) {
	if index < 0 || index >= len(e.Lines) {
		return
	}
	if q < 0 {
		q = 0
	}
	e.Lines[index].Quantity = q
}

// RemoveIngredient drops the line for ingredientID, if any.
func (e *Editor) RemoveIngredient(ingredientID int64) bool {
	i := e.indexOf(ingredientID)
	if i < 0 {
		return false
	}
	e.Lines = append(e.Lines[:i], e.Lines[i+1:]...)
	return true
}

// Available filters catalog down to the ingredients not yet on the recipe.
func (e *Editor) Available(catalog []model.Ingredient) []model.Ingredient {
	var out []model.Ingredient
	for _, ing := range catalog {
		if !e.Has(ing.ID) {
			out = append(out, ing)
		}
	}
	return out
}

// BatchCost is the cost of the whole batch as currently edited.
func (e *Editor) BatchCost() float64 {
	return BatchCost(e.Lines)
}

// UnitCost is the cost of one yield unit as currently edited.
func (e *Editor) UnitCost() float64 {
	return UnitCost(e.PerUnitLines())
}

// PerUnitLines is the editor's content normalized for storage.
func (e *Editor) PerUnitLines() []Line {
	return NormalizeForPersistence(e.Lines, e.Yield)
}

// Rows describes each line for display: total and per-unit quantity plus the
// line's batch cost.
func (e *Editor) Rows() []Row {
	rows := make([]Row, len(e.Lines))
	for i, l := range e.Lines {
		rows[i] = Row{
			ID:              l.ID,
			IngredientID:    l.IngredientID,
			Name:            strings.TrimSpace(l.Name),
			UnitOfMeasure:   l.UnitOfMeasure,
			UnitCost:        l.UnitCost,
			TotalQuantity:   l.Quantity,
			PerUnitQuantity: UnitQuantity(l.Quantity, e.Yield),
			LineCost:        l.Cost(),
		}
	}
	return rows
}

// Row is a display-ready recipe line.
type Row struct {
	ID              int64   `json:"id,omitempty"`
	IngredientID    int64   `json:"ingredient_id"`
	Name            string  `json:"name"`
	UnitOfMeasure   string  `json:"unit_of_measure"`
	UnitCost        float64 `json:"unit_cost"`
	TotalQuantity   float64 `json:"total_quantity"`
	PerUnitQuantity float64 `json:"per_unit_quantity"`
	LineCost        float64 `json:"line_cost"`
}
