package handler

import (
	"net/http"
	"testing"

	"github.com/dukerupert/clubledger/internal/model"
)

func TestEventCRUD(t *testing.T) {
	env := newTestEnv(t)

	ev := env.createEvent("Spring fair", "2026-04-18")
	if ev.Status != model.EventStatusPlanning {
		t.Errorf("status = %q, want planning", ev.Status)
	}
	if ev.EventDate.Format("2006-01-02") != "2026-04-18" {
		t.Errorf("event_date = %v", ev.EventDate)
	}

	rec := env.do("PUT", urlf("/api/events/%d", ev.ID), map[string]any{
		"title": "Spring fair", "event_date": "2026-04-19", "status": "confirmed",
	})
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[model.Event](t, rec); got.Status != model.EventStatusConfirmed {
		t.Errorf("status = %q", got.Status)
	}

	rec = env.do("GET", "/api/events", nil)
	expectStatus(t, rec, http.StatusOK)
	if list := decodeBody[[]model.Event](t, rec); len(list) != 1 {
		t.Errorf("list len = %d", len(list))
	}

	expectStatus(t, env.do("DELETE", urlf("/api/events/%d", ev.ID), nil), http.StatusNoContent)
	expectStatus(t, env.do("GET", urlf("/api/events/%d", ev.ID), nil), http.StatusNotFound)
}

func TestEventValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"event_date": "2026-01-01"}},
		{"missing date", map[string]any{"title": "Fair"}},
		{"bad date", map[string]any{"title": "Fair", "event_date": "01/02/2026"}},
		{"bad status", map[string]any{"title": "Fair", "event_date": "2026-01-01", "status": "postponed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, env.do("POST", "/api/events", tt.body), http.StatusBadRequest)
		})
	}
}

func TestEventItemsKeepTotalsInSync(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createEvent("Bake sale", "2026-05-02")

	rec := env.do("POST", urlf("/api/events/%d/items", ev.ID), map[string]any{
		"name": "Brownies", "category": "Baked goods", "unit_cost": 0.5, "quantity": 50, "unit_price": 1.5,
	})
	expectStatus(t, rec, http.StatusCreated)
	brownies := decodeBody[model.EventItem](t, rec)
	if brownies.TotalCost != 25 || brownies.TotalRevenue != 75 {
		t.Errorf("line totals = %v/%v", brownies.TotalCost, brownies.TotalRevenue)
	}

	rec = env.do("POST", urlf("/api/events/%d/items", ev.ID), map[string]any{
		"name": "Table hire", "unit_cost": 40, "quantity": 1, "unit_price": 0,
	})
	expectStatus(t, rec, http.StatusCreated)
	table := decodeBody[model.EventItem](t, rec)

	rec = env.do("GET", urlf("/api/events/%d", ev.ID), nil)
	expectStatus(t, rec, http.StatusOK)
	got := decodeBody[eventResponse](t, rec)
	if len(got.Items) != 2 || got.TotalCost != 65 || got.TotalRevenue != 75 {
		t.Fatalf("event = %+v", got)
	}
	if got.Summary.NetProfit != 10 || got.Summary.ProfitMargin != "13.3" || !got.Summary.Favorable {
		t.Errorf("summary = %+v", got.Summary)
	}

	rec = env.do("PUT", urlf("/api/events/%d/items/%d", ev.ID, brownies.ID), map[string]any{
		"name": "Brownies", "unit_cost": 0.5, "quantity": 20, "unit_price": 1.5,
	})
	expectStatus(t, rec, http.StatusOK)

	expectStatus(t, env.do("DELETE", urlf("/api/events/%d/items/%d", ev.ID, table.ID), nil), http.StatusNoContent)

	rec = env.do("GET", urlf("/api/events/%d", ev.ID), nil)
	got = decodeBody[eventResponse](t, rec)
	if len(got.Items) != 1 || got.TotalCost != 10 || got.TotalRevenue != 30 {
		t.Errorf("event after edits = %+v", got)
	}
	if got.Summary.TotalCost != got.TotalCost || got.Summary.TotalRevenue != got.TotalRevenue {
		t.Errorf("summary %+v disagrees with cached totals", got.Summary)
	}
}

func TestEventItemValidation(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createEvent("Quiz night", "2026-06-01")

	tests := []struct {
		name string
		body any
	}{
		{"missing name", map[string]any{"unit_cost": 1, "quantity": 1, "unit_price": 1}},
		{"zero quantity", map[string]any{"name": "Tea", "unit_cost": 1, "quantity": 0, "unit_price": 1}},
		{"negative cost", map[string]any{"name": "Tea", "unit_cost": -1, "quantity": 1, "unit_price": 1}},
		{"missing price", map[string]any{"name": "Tea", "unit_cost": 1, "quantity": 1}},
		{"non-numeric cost", `{"name":"Tea","unit_cost":"abc","quantity":1,"unit_price":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, env.do("POST", urlf("/api/events/%d/items", ev.ID), tt.body), http.StatusBadRequest)
		})
	}
}

func TestEventItemsOtherUser(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createEvent("Private", "2026-07-01")
	other := env.createUser("other@example.com")

	item := map[string]any{"name": "Tea", "unit_cost": 1, "quantity": 1, "unit_price": 2}
	expectStatus(t, env.doAs(other, "POST", urlf("/api/events/%d/items", ev.ID), item), http.StatusNotFound)
	expectStatus(t, env.doAs(other, "GET", urlf("/api/events/%d", ev.ID), nil), http.StatusNotFound)
	expectStatus(t, env.doAs(other, "POST", urlf("/api/events/%d/recalculate", ev.ID), nil), http.StatusNotFound)
}

func TestEventRecalculate(t *testing.T) {
	env := newTestEnv(t)
	ev := env.createEvent("Fete", "2026-08-08")
	expectStatus(t, env.do("POST", urlf("/api/events/%d/items", ev.ID), map[string]any{
		"name": "Lemonade", "unit_cost": 0.3, "quantity": 10, "unit_price": 1,
	}), http.StatusCreated)

	if _, err := env.db.Exec(`UPDATE events SET total_cost = 0, total_revenue = 0 WHERE id = ?`, ev.ID); err != nil {
		t.Fatalf("corrupt totals: %v", err)
	}

	rec := env.do("POST", urlf("/api/events/%d/recalculate", ev.ID), nil)
	expectStatus(t, rec, http.StatusOK)
	got := decodeBody[model.Event](t, rec)
	if !approx(got.TotalCost, 3) || got.TotalRevenue != 10 {
		t.Errorf("totals = %v/%v", got.TotalCost, got.TotalRevenue)
	}
}
