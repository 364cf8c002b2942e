package model

import "time"

type Ingredient struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	UnitOfMeasure string    `json:"unit_of_measure"`
	UnitCost      float64   `json:"unit_cost"`
	CreatedAt     time.Time `json:"created_at"`
}
