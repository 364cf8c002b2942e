package model

import "time"

// Recipe is a batch preparation producing YieldQuantity sellable units.
// CalculatedCost caches the cost of one yield unit.
type Recipe struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	YieldQuantity  int       `json:"yield_quantity"`
	CalculatedCost float64   `json:"calculated_cost"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RecipeIngredient links an ingredient to a recipe. QuantityUsed is the
// per-unit quantity (the amount needed for one yield unit).
type RecipeIngredient struct {
	ID           int64     `json:"id"`
	RecipeID     int64     `json:"recipe_id"`
	IngredientID int64     `json:"ingredient_id"`
	QuantityUsed float64   `json:"quantity_used"`
	CreatedAt    time.Time `json:"created_at"`

	// Joined from ingredients.
	Name          string  `json:"name"`
	UnitOfMeasure string  `json:"unit_of_measure"`
	UnitCost      float64 `json:"unit_cost"`
}
