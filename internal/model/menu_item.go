package model

import "time"

type MenuItem struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	RecipeID       *int64    `json:"recipe_id"`
	BaseCost       float64   `json:"base_cost"`
	SuggestedPrice float64   `json:"suggested_price"`
	CreatedAt      time.Time `json:"created_at"`
}
