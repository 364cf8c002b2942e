package costing

import (
	"errors"
	"math"
	"testing"

	"github.com/dukerupert/clubledger/internal/model"
)

const tolerance = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Abs(b))
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"2.5", 2.5},
		{" 10 ", 10},
		{"0", 0},
		{"", 0},
		{"abc", 0},
		{"-3", 0},
		{"1,5", 1.5},
		{"NaN", 0},
		{"Inf", 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseQuantity(tt.raw); got != tt.want {
				t.Errorf("ParseQuantity(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestUnitQuantity(t *testing.T) {
	if got := UnitQuantity(10, 4); got != 2.5 {
		t.Errorf("UnitQuantity(10, 4) = %v, want 2.5", got)
	}
	if got := UnitQuantity(10, 0); got != 0 {
		t.Errorf("UnitQuantity(10, 0) = %v, want 0", got)
	}
}

func TestValidateYield(t *testing.T) {
	if err := ValidateYield(1); err != nil {
		t.Errorf("ValidateYield(1) = %v, want nil", err)
	}
	for _, y := range []int{0, -2} {
		if err := ValidateYield(y); !errors.Is(err, ErrInvalidYield) {
			t.Errorf("ValidateYield(%d) = %v, want ErrInvalidYield", y, err)
		}
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	lines := []Line{
		{IngredientID: 1, Quantity: 80, UnitCost: 2},
		{IngredientID: 2, Quantity: 3.3, UnitCost: 0.7},
		{IngredientID: 3, Quantity: 0, UnitCost: 12},
		{IngredientID: 4, Quantity: 1e-3, UnitCost: 150},
	}
	for _, yield := range []int{1, 3, 7, 40, 1000} {
		perUnit := NormalizeForPersistence(lines, yield)
		back := DenormalizeForEditing(perUnit, yield)
		for i := range lines {
			if !approxEqual(back[i].Quantity, lines[i].Quantity) {
				t.Errorf("yield %d line %d: round trip = %v, want %v", yield, i, back[i].Quantity, lines[i].Quantity)
			}
		}
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	lines := []Line{{IngredientID: 1, Quantity: 10}}
	_ = NormalizeForPersistence(lines, 5)
	if lines[0].Quantity != 10 {
		t.Errorf("input quantity = %v, want 10", lines[0].Quantity)
	}
}

func TestCostBasisConsistency(t *testing.T) {
	totals := []Line{
		{IngredientID: 1, Quantity: 80, UnitCost: 2},
		{IngredientID: 2, Quantity: 12.5, UnitCost: 3.2},
	}
	for _, yield := range []int{1, 4, 40} {
		perUnit := NormalizeForPersistence(totals, yield)
		batch := BatchCost(totals)
		if got := UnitCost(perUnit) * float64(yield); !approxEqual(got, batch) {
			t.Errorf("yield %d: unit cost x yield = %v, want %v", yield, got, batch)
		}
		if got := BatchCostFromPerUnit(perUnit, yield); !approxEqual(got, batch) {
			t.Errorf("yield %d: BatchCostFromPerUnit = %v, want %v", yield, got, batch)
		}
	}
}

func TestPerUnitExample(t *testing.T) {
	// 80 units of flour at 2.00 across a yield of 40.
	totals := []Line{{IngredientID: 1, Quantity: 80, UnitCost: 2}}
	perUnit := NormalizeForPersistence(totals, 40)

	if perUnit[0].Quantity != 2 {
		t.Errorf("stored quantity = %v, want 2", perUnit[0].Quantity)
	}
	if got := UnitCost(perUnit); got != 4 {
		t.Errorf("unit cost = %v, want 4", got)
	}
	if got := BatchCost(totals); got != 160 {
		t.Errorf("batch cost = %v, want 160", got)
	}
}

func TestEditorAddIngredientNoDuplicates(t *testing.T) {
	e := NewEditor(2, nil)
	flour := model.Ingredient{ID: 1, Name: "Flour", UnitOfMeasure: "kg", UnitCost: 2}

	idx, added := e.AddIngredient(flour)
	if !added || idx != 0 {
		t.Fatalf("first add = (%d, %v), want (0, true)", idx, added)
	}
	e.SetQuantity(idx, "5")

	idx, added = e.AddIngredient(flour)
	if added {
		t.Error("second add reported added, want no-op")
	}
	if idx != 0 {
		t.Errorf("second add index = %d, want 0", idx)
	}
	if len(e.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(e.Lines))
	}
	if e.Lines[0].Quantity != 5 {
		t.Errorf("quantity = %v, want 5 (unchanged)", e.Lines[0].Quantity)
	}
}

func TestEditorRemoveThenReAddResetsQuantity(t *testing.T) {
	e := NewEditor(1, nil)
	sugar := model.Ingredient{ID: 7, Name: "Sugar", UnitCost: 1}

	idx, _ := e.AddIngredient(sugar)
	e.SetQuantity(idx, "3")
	if !e.RemoveIngredient(7) {
		t.Fatal("remove returned false")
	}
	if e.RemoveIngredient(7) {
		t.Error("second remove returned true")
	}
	idx, added := e.AddIngredient(sugar)
	if !added {
		t.Fatal("re-add not added")
	}
	if e.Lines[idx].Quantity != 0 {
		t.Errorf("quantity after re-add = %v, want 0", e.Lines[idx].Quantity)
	}
}

func TestEditorSetQuantity(t *testing.T) {
	e := NewEditor(1, []Line{{IngredientID: 1, Quantity: 4}})

	e.SetQuantity(0, "not a number")
	if e.Lines[0].Quantity != 0 {
		t.Errorf("quantity = %v, want 0", e.Lines[0].Quantity)
	}
	e.SetQuantityValue(0, -2)
	if e.Lines[0].Quantity != 0 {
		t.Errorf("negative quantity = %v, want 0", e.Lines[0].Quantity)
	}
	e.SetQuantity(5, "9")
	if len(e.Lines) != 1 || e.Lines[0].Quantity != 0 {
		t.Errorf("out of range index changed lines: %+v", e.Lines)
	}
}

func TestNewEditorDropsDuplicates(t *testing.T) {
	e := NewEditor(1, []Line{
		{IngredientID: 1, Quantity: 2},
		{IngredientID: 1, Quantity: 9},
		{IngredientID: 2, Quantity: -1},
	})
	if len(e.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(e.Lines))
	}
	if e.Lines[0].Quantity != 2 {
		t.Errorf("kept quantity = %v, want first occurrence 2", e.Lines[0].Quantity)
	}
	if e.Lines[1].Quantity != 0 {
		t.Errorf("negative quantity = %v, want clamped 0", e.Lines[1].Quantity)
	}
}

func TestEditorAvailable(t *testing.T) {
	catalog := []model.Ingredient{{ID: 1}, {ID: 2}, {ID: 3}}
	e := NewEditor(1, []Line{{IngredientID: 2}})

	got := e.Available(catalog)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("available = %+v, want ids 1 and 3", got)
	}
}

func TestEditorCosts(t *testing.T) {
	e := NewEditor(40, []Line{{IngredientID: 1, Quantity: 80, UnitCost: 2}})
	if got := e.BatchCost(); got != 160 {
		t.Errorf("batch cost = %v, want 160", got)
	}
	if got := e.UnitCost(); got != 4 {
		t.Errorf("unit cost = %v, want 4", got)
	}
	rows := e.Rows()
	if rows[0].PerUnitQuantity != 2 || rows[0].LineCost != 160 {
		t.Errorf("row = %+v, want per-unit 2 and line cost 160", rows[0])
	}
}
