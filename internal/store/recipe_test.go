package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/clubledger/internal/costing"
	"github.com/dukerupert/clubledger/internal/model"
)

func setupRecipeTest(t *testing.T) (*RecipeStore, *IngredientStore, int64) {
	t.Helper()
	db := setupTestDB(t)
	return NewRecipeStore(db), NewIngredientStore(db), createTestUser(t, db)
}

func TestRecipeSavePerUnitScenario(t *testing.T) {
	rs, is, uid := setupRecipeTest(t)
	ctx := context.Background()

	flour, _ := is.Create(ctx, uid, "Flour", "kg", 2)
	ed := costing.NewEditor(40, nil)
	idx, _ := ed.AddIngredient(*flour)
	ed.SetQuantity(idx, "80")

	recipe, err := rs.Save(ctx, uid, 0, RecipeInput{Name: "Cookies", YieldQuantity: 40}, ed.PerUnitLines())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if recipe.CalculatedCost != 4 {
		t.Errorf("calculated_cost = %v, want 4", recipe.CalculatedCost)
	}

	lines, err := rs.ListIngredients(ctx, uid, recipe.ID)
	if err != nil {
		t.Fatalf("list ingredients: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(lines))
	}
	if lines[0].QuantityUsed != 2 {
		t.Errorf("quantity_used = %v, want 2", lines[0].QuantityUsed)
	}

	totals := costing.DenormalizeForEditing(costing.FromRecipeIngredients(lines), recipe.YieldQuantity)
	if totals[0].Quantity != 80 {
		t.Errorf("total for editing = %v, want 80", totals[0].Quantity)
	}
	if got := costing.BatchCost(totals); got != 160 {
		t.Errorf("batch cost = %v, want 160", got)
	}
}

func TestRecipeSaveDiffsLines(t *testing.T) {
	rs, is, uid := setupRecipeTest(t)
	ctx := context.Background()

	flour, _ := is.Create(ctx, uid, "Flour", "kg", 1)
	sugar, _ := is.Create(ctx, uid, "Sugar", "kg", 2)
	eggs, _ := is.Create(ctx, uid, "Eggs", "unit", 0.5)

	recipe, err := rs.Save(ctx, uid, 0, RecipeInput{Name: "Cake", YieldQuantity: 1}, []costing.Line{
		{IngredientID: flour.ID, Quantity: 1},
		{IngredientID: sugar.ID, Quantity: 1},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	before, _ := rs.ListIngredients(ctx, uid, recipe.ID)
	flourLineID := before[0].ID

	recipe, err = rs.Save(ctx, uid, recipe.ID, RecipeInput{Name: "Cake", Description: "v2", YieldQuantity: 1}, []costing.Line{
		{IngredientID: flour.ID, Quantity: 2},
		{IngredientID: eggs.ID, Quantity: 4},
		{IngredientID: eggs.ID, Quantity: 9},
	})
	if err != nil {
		t.Fatalf("resave: %v", err)
	}
	if recipe.Description != "v2" {
		t.Errorf("description = %q, want %q", recipe.Description, "v2")
	}

	after, _ := rs.ListIngredients(ctx, uid, recipe.ID)
	if len(after) != 2 {
		t.Fatalf("lines = %d, want 2", len(after))
	}
	byIngredient := map[int64]model.RecipeIngredient{}
	for _, l := range after {
		byIngredient[l.IngredientID] = l
	}
	if l := byIngredient[flour.ID]; l.ID != flourLineID || l.QuantityUsed != 2 {
		t.Errorf("flour line = %+v, want id %d updated in place to 2", l, flourLineID)
	}
	if _, ok := byIngredient[sugar.ID]; ok {
		t.Error("sugar line should be removed")
	}
	if l := byIngredient[eggs.ID]; l.QuantityUsed != 4 {
		t.Errorf("eggs quantity = %v, want first occurrence 4", l.QuantityUsed)
	}
	if recipe.CalculatedCost != 4 {
		t.Errorf("calculated_cost = %v, want 4", recipe.CalculatedCost)
	}
}

func TestRecipeSaveFailureLeavesLinesUntouched(t *testing.T) {
	db := setupTestDB(t)
	rs, is := NewRecipeStore(db), NewIngredientStore(db)
	ctx := context.Background()
	uid := createTestUser(t, db)
	other := createTestUser(t, db)

	flour, _ := is.Create(ctx, uid, "Flour", "kg", 1)
	foreign, _ := is.Create(ctx, other, "Saffron", "g", 10)

	recipe, _ := rs.Save(ctx, uid, 0, RecipeInput{Name: "Bread", YieldQuantity: 2},
		[]costing.Line{{IngredientID: flour.ID, Quantity: 3}})

	_, err := rs.Save(ctx, uid, recipe.ID, RecipeInput{Name: "Renamed", YieldQuantity: 2}, []costing.Line{
		{IngredientID: flour.ID, Quantity: 5},
		{IngredientID: foreign.ID, Quantity: 1},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	got, _ := rs.GetByID(ctx, uid, recipe.ID)
	if got.Name != "Bread" {
		t.Errorf("name = %q, want unchanged %q", got.Name, "Bread")
	}
	lines, _ := rs.ListIngredients(ctx, uid, recipe.ID)
	if len(lines) != 1 || lines[0].QuantityUsed != 3 {
		t.Errorf("lines = %+v, want single flour line with 3", lines)
	}
}

func TestRecipeSaveInvalidYield(t *testing.T) {
	rs, _, uid := setupRecipeTest(t)

	_, err := rs.Save(context.Background(), uid, 0, RecipeInput{Name: "Bad", YieldQuantity: 0}, nil)
	if !errors.Is(err, costing.ErrInvalidYield) {
		t.Fatalf("err = %v, want ErrInvalidYield", err)
	}
}

func TestRecipeDeleteCascadesLines(t *testing.T) {
	db := setupTestDB(t)
	rs, is := NewRecipeStore(db), NewIngredientStore(db)
	ctx := context.Background()
	uid := createTestUser(t, db)

	flour, _ := is.Create(ctx, uid, "Flour", "kg", 1)
	recipe, _ := rs.Save(ctx, uid, 0, RecipeInput{Name: "Bread", YieldQuantity: 1},
		[]costing.Line{{IngredientID: flour.ID, Quantity: 1}})

	if err := rs.Delete(ctx, uid, recipe.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var n int
	db.QueryRow(`SELECT COUNT(*) FROM recipe_ingredients WHERE recipe_id = ?`, recipe.ID).Scan(&n)
	if n != 0 {
		t.Errorf("orphan lines = %d, want 0", n)
	}
	if err := is.Delete(ctx, uid, flour.ID); err != nil {
		t.Errorf("ingredient delete after recipe delete: %v", err)
	}
	if err := rs.Delete(ctx, uid, recipe.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestRecipeScopedByUser(t *testing.T) {
	db := setupTestDB(t)
	rs := NewRecipeStore(db)
	ctx := context.Background()
	alice := createTestUser(t, db)
	bob := createTestUser(t, db)

	recipe, _ := rs.Save(ctx, alice, 0, RecipeInput{Name: "Secret", YieldQuantity: 1}, nil)

	if got, _ := rs.GetByID(ctx, bob, recipe.ID); got != nil {
		t.Error("other user's recipe should not be visible")
	}
	if _, err := rs.Save(ctx, bob, recipe.ID, RecipeInput{Name: "Mine", YieldQuantity: 1}, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("save err = %v, want ErrNotFound", err)
	}
	if _, err := rs.RefreshCost(ctx, bob, recipe.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("refresh err = %v, want ErrNotFound", err)
	}
}
