package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/clubledger/internal/costing"
)

func TestIngredientCRUD(t *testing.T) {
	db := setupTestDB(t)
	is := NewIngredientStore(db)
	ctx := context.Background()
	uid := createTestUser(t, db)

	created, err := is.Create(ctx, uid, "Flour", "kg", 2.5)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "Flour" || created.UnitOfMeasure != "kg" || created.UnitCost != 2.5 {
		t.Errorf("created = %+v", created)
	}

	updated, err := is.Update(ctx, uid, created.ID, "Wheat flour", "kg", 3)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Wheat flour" || updated.UnitCost != 3 {
		t.Errorf("updated = %+v", updated)
	}

	if err := is.Delete(ctx, uid, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := is.GetByID(ctx, uid, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestIngredientListOrderedByName(t *testing.T) {
	db := setupTestDB(t)
	is := NewIngredientStore(db)
	ctx := context.Background()
	uid := createTestUser(t, db)

	is.Create(ctx, uid, "sugar", "kg", 1)
	is.Create(ctx, uid, "Butter", "kg", 8)
	is.Create(ctx, uid, "eggs", "unit", 0.5)

	list, err := is.List(ctx, uid)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"Butter", "eggs", "sugar"}
	if len(list) != len(want) {
		t.Fatalf("len = %d, want %d", len(list), len(want))
	}
	for i, name := range want {
		if list[i].Name != name {
			t.Errorf("[%d] = %q, want %q", i, list[i].Name, name)
		}
	}
}

func TestIngredientScopedByUser(t *testing.T) {
	db := setupTestDB(t)
	is := NewIngredientStore(db)
	ctx := context.Background()
	alice := createTestUser(t, db)
	bob := createTestUser(t, db)

	ing, _ := is.Create(ctx, alice, "Flour", "kg", 2)

	got, err := is.GetByID(ctx, bob, ing.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("other user's ingredient should not be visible")
	}
	list, _ := is.List(ctx, bob)
	if len(list) != 0 {
		t.Errorf("bob list = %d, want 0", len(list))
	}
	if _, err := is.Update(ctx, bob, ing.ID, "Stolen", "kg", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("update err = %v, want ErrNotFound", err)
	}
	if err := is.Delete(ctx, bob, ing.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete err = %v, want ErrNotFound", err)
	}
}

func TestIngredientDeleteBlockedWhileInUse(t *testing.T) {
	db := setupTestDB(t)
	is := NewIngredientStore(db)
	rs := NewRecipeStore(db)
	ctx := context.Background()
	uid := createTestUser(t, db)

	flour, _ := is.Create(ctx, uid, "Flour", "kg", 2)
	recipe, err := rs.Save(ctx, uid, 0, RecipeInput{Name: "Bread", YieldQuantity: 1},
		[]costing.Line{{IngredientID: flour.ID, Quantity: 1}})
	if err != nil {
		t.Fatalf("save recipe: %v", err)
	}

	if err := is.Delete(ctx, uid, flour.ID); !errors.Is(err, ErrIngredientInUse) {
		t.Fatalf("delete err = %v, want ErrIngredientInUse", err)
	}

	lines, _ := rs.ListIngredients(ctx, uid, recipe.ID)
	if len(lines) != 1 {
		t.Errorf("recipe lines = %d, want 1 (association intact)", len(lines))
	}
	n, _ := is.UsageCount(ctx, uid, flour.ID)
	if n != 1 {
		t.Errorf("usage count = %d, want 1", n)
	}
}

func TestIngredientUpdateRefreshesRecipeCost(t *testing.T) {
	db := setupTestDB(t)
	is := NewIngredientStore(db)
	rs := NewRecipeStore(db)
	ctx := context.Background()
	uid := createTestUser(t, db)

	flour, _ := is.Create(ctx, uid, "Flour", "kg", 2)
	recipe, _ := rs.Save(ctx, uid, 0, RecipeInput{Name: "Bread", YieldQuantity: 4},
		[]costing.Line{{IngredientID: flour.ID, Quantity: 0.5}})
	if recipe.CalculatedCost != 1 {
		t.Fatalf("initial cost = %v, want 1", recipe.CalculatedCost)
	}

	if _, err := is.Update(ctx, uid, flour.ID, "Flour", "kg", 4); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := rs.GetByID(ctx, uid, recipe.ID)
	if got.CalculatedCost != 2 {
		t.Errorf("refreshed cost = %v, want 2", got.CalculatedCost)
	}
}
