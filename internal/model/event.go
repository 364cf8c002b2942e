package model

import "time"

type EventStatus string

const (
	EventStatusPlanning  EventStatus = "planning"
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusPlanning, EventStatusConfirmed, EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

// Event is a club event. TotalCost and TotalRevenue cache the sums of the
// event's items and are refreshed whenever an item changes.
type Event struct {
	ID           int64       `json:"id"`
	UserID       int64       `json:"user_id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	EventDate    time.Time   `json:"event_date"`
	Status       EventStatus `json:"status"`
	TotalCost    float64     `json:"total_cost"`
	TotalRevenue float64     `json:"total_revenue"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type EventItem struct {
	ID           int64     `json:"id"`
	EventID      int64     `json:"event_id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	UnitCost     float64   `json:"unit_cost"`
	Quantity     int       `json:"quantity"`
	UnitPrice    float64   `json:"unit_price"`
	TotalCost    float64   `json:"total_cost"`
	TotalRevenue float64   `json:"total_revenue"`
	CreatedAt    time.Time `json:"created_at"`
}
