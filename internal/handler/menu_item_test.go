package handler

import (
	"net/http"
	"testing"

	"github.com/dukerupert/clubledger/internal/model"
)

func TestMenuItemRefreshCost(t *testing.T) {
	env := newTestEnv(t)
	beans := env.createIngredient("Coffee beans", "kg", 20)

	rec := env.do("POST", "/api/recipes", map[string]any{
		"name": "Coffee", "yield_quantity": 50,
		"lines": []map[string]any{{"ingredient_id": beans.ID, "quantity": 0.5}},
	})
	expectStatus(t, rec, http.StatusCreated)
	coffee := decodeBody[recipeResponse](t, rec)

	rec = env.do("POST", "/api/menu-items", map[string]any{
		"name": "Coffee", "category": "Drinks", "recipe_id": coffee.ID, "suggested_price": 1.5,
	})
	expectStatus(t, rec, http.StatusCreated)
	item := decodeBody[model.MenuItem](t, rec)
	if item.RecipeID == nil || *item.RecipeID != coffee.ID {
		t.Fatalf("recipe_id = %v", item.RecipeID)
	}

	// Beans get pricier; the recipe is re-costed and the menu item follows on refresh.
	expectStatus(t, env.do("PUT", urlf("/api/ingredients/%d", beans.ID), map[string]any{
		"name": "Coffee beans", "unit_of_measure": "kg", "unit_cost": 30,
	}), http.StatusOK)

	rec = env.do("POST", urlf("/api/menu-items/%d/refresh-cost", item.ID), nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[model.MenuItem](t, rec); !approx(got.BaseCost, 0.3) {
		t.Errorf("base_cost = %v, want 0.3", got.BaseCost)
	}
}

func TestMenuItemWithoutRecipe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do("POST", "/api/menu-items", map[string]any{"name": "Raffle ticket", "base_cost": 0.1, "suggested_price": 1})
	expectStatus(t, rec, http.StatusCreated)
	item := decodeBody[model.MenuItem](t, rec)

	expectStatus(t, env.do("POST", urlf("/api/menu-items/%d/refresh-cost", item.ID), nil), http.StatusConflict)

	rec = env.do("PUT", urlf("/api/menu-items/%d", item.ID), map[string]any{"name": "Raffle strip", "suggested_price": 5})
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[model.MenuItem](t, rec); got.Name != "Raffle strip" {
		t.Errorf("name = %q", got.Name)
	}

	expectStatus(t, env.do("DELETE", urlf("/api/menu-items/%d", item.ID), nil), http.StatusNoContent)
	expectStatus(t, env.do("PUT", urlf("/api/menu-items/%d", item.ID), map[string]any{"name": "x"}), http.StatusNotFound)
}

func TestMenuItemForeignRecipe(t *testing.T) {
	env := newTestEnv(t)
	other := env.createUser("other@example.com")

	rec := env.doAs(other, "POST", "/api/recipes", map[string]any{"name": "Secret", "yield_quantity": 1})
	expectStatus(t, rec, http.StatusCreated)
	secret := decodeBody[recipeResponse](t, rec)

	rec = env.do("POST", "/api/menu-items", map[string]any{"name": "Copy", "recipe_id": secret.ID})
	expectStatus(t, rec, http.StatusBadRequest)
}
