package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/clubledger/internal/model"
	"github.com/dukerupert/clubledger/internal/rollup"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

type EventInput struct {
	Title       string
	Description string
	EventDate   time.Time
	Status      model.EventStatus
}

type EventItemInput struct {
	Name      string
	Category  string
	UnitCost  float64
	Quantity  int
	UnitPrice float64
}

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := scanner.Scan(
		&e.ID, &e.UserID, &e.Title, &e.Description, &e.EventDate, &e.Status,
		&e.TotalCost, &e.TotalRevenue, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const eventCols = `id, user_id, title, description, event_date, status, total_cost, total_revenue, created_at, updated_at`

func scanEventItem(scanner interface{ Scan(...any) error }) (*model.EventItem, error) {
	var it model.EventItem
	err := scanner.Scan(
		&it.ID, &it.EventID, &it.Name, &it.Category, &it.UnitCost, &it.Quantity,
		&it.UnitPrice, &it.TotalCost, &it.TotalRevenue, &it.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

const eventItemCols = `id, event_id, name, category, unit_cost, quantity, unit_price, total_cost, total_revenue, created_at`

func (s *EventStore) Create(ctx context.Context, userID int64, in EventInput) (*model.Event, error) {
	if in.Status == "" {
		in.Status = model.EventStatusPlanning
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO events (user_id, title, description, event_date, status) VALUES (?, ?, ?, ?, ?)`,
		userID, in.Title, in.Description, in.EventDate, in.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

func (s *EventStore) GetByID(ctx context.Context, userID, id int64) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventCols+` FROM events WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// List returns the user's events, most recent event date first.
func (s *EventStore) List(ctx context.Context, userID int64) ([]model.Event, error) {
	return s.list(ctx, `SELECT `+eventCols+` FROM events WHERE user_id = ?
		ORDER BY event_date DESC, id DESC`, userID)
}

// ListRecent returns at most limit events, most recent event date first.
func (s *EventStore) ListRecent(ctx context.Context, userID int64, limit int) ([]model.Event, error) {
	return s.list(ctx, `SELECT `+eventCols+` FROM events WHERE user_id = ?
		ORDER BY event_date DESC, id DESC LIMIT ?`, userID, limit)
}

func (s *EventStore) list(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Update(ctx context.Context, userID, id int64, in EventInput) (*model.Event, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET title = ?, description = ?, event_date = ?, status = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		in.Title, in.Description, in.EventDate, in.Status, time.Now().UTC(), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID, id)
}

// Delete removes an event together with its items.
func (s *EventStore) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return checkAffected(res)
}

func (s *EventStore) ListItems(ctx context.Context, userID, eventID int64) ([]model.EventItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ei.id, ei.event_id, ei.name, ei.category, ei.unit_cost, ei.quantity,
		        ei.unit_price, ei.total_cost, ei.total_revenue, ei.created_at
		 FROM event_items ei
		 JOIN events e ON e.id = ei.event_id
		 WHERE ei.event_id = ? AND e.user_id = ?
		 ORDER BY ei.id ASC`, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("list event items: %w", err)
	}
	defer rows.Close()

	var items []model.EventItem
	for rows.Next() {
		it, err := scanEventItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *EventStore) GetItem(ctx context.Context, userID, eventID, itemID int64) (*model.EventItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT ei.id, ei.event_id, ei.name, ei.category, ei.unit_cost, ei.quantity,
		        ei.unit_price, ei.total_cost, ei.total_revenue, ei.created_at
		 FROM event_items ei
		 JOIN events e ON e.id = ei.event_id
		 WHERE ei.id = ? AND ei.event_id = ? AND e.user_id = ?`, itemID, eventID, userID)
	it, err := scanEventItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event item: %w", err)
	}
	return it, nil
}

// CreateItem adds an item to the event and refreshes the event's totals in
// the same transaction.
func (s *EventStore) CreateItem(ctx context.Context, userID, eventID int64, in EventItemInput) (*model.EventItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := ownsEvent(ctx, tx, userID, eventID); err != nil {
		return nil, err
	}

	totalCost, totalRevenue := rollup.LineTotals(in.UnitCost, in.Quantity, in.UnitPrice)
	result, err := tx.ExecContext(ctx,
		`INSERT INTO event_items (event_id, name, category, unit_cost, quantity, unit_price, total_cost, total_revenue)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		eventID, in.Name, in.Category, in.UnitCost, in.Quantity, in.UnitPrice, totalCost, totalRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event item: %w", err)
	}
	itemID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := persistEventTotals(ctx, tx, eventID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetItem(ctx, userID, eventID, itemID)
}

// UpdateItem rewrites an item, recomputing its line totals and the event's totals.
func (s *EventStore) UpdateItem(ctx context.Context, userID, eventID, itemID int64, in EventItemInput) (*model.EventItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := ownsEvent(ctx, tx, userID, eventID); err != nil {
		return nil, err
	}

	totalCost, totalRevenue := rollup.LineTotals(in.UnitCost, in.Quantity, in.UnitPrice)
	res, err := tx.ExecContext(ctx,
		`UPDATE event_items SET name = ?, category = ?, unit_cost = ?, quantity = ?, unit_price = ?,
		        total_cost = ?, total_revenue = ?
		 WHERE id = ? AND event_id = ?`,
		in.Name, in.Category, in.UnitCost, in.Quantity, in.UnitPrice, totalCost, totalRevenue, itemID, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("update event item: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}

	if _, err := persistEventTotals(ctx, tx, eventID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetItem(ctx, userID, eventID, itemID)
}

func (s *EventStore) DeleteItem(ctx context.Context, userID, eventID, itemID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := ownsEvent(ctx, tx, userID, eventID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM event_items WHERE id = ? AND event_id = ?`, itemID, eventID)
	if err != nil {
		return fmt.Errorf("delete event item: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}

	if _, err := persistEventTotals(ctx, tx, eventID); err != nil {
		return err
	}
	return tx.Commit()
}

// RecalculateTotals recomputes the event's cached totals from its items.
func (s *EventStore) RecalculateTotals(ctx context.Context, userID, eventID int64) (*model.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := ownsEvent(ctx, tx, userID, eventID); err != nil {
		return nil, err
	}
	if _, err := persistEventTotals(ctx, tx, eventID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(ctx, userID, eventID)
}

func ownsEvent(ctx context.Context, q querier, userID, eventID int64) error {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM events WHERE id = ? AND user_id = ?`, eventID, userID,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("check event owner: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func persistEventTotals(ctx context.Context, q querier, eventID int64) (rollup.Summary, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+eventItemCols+` FROM event_items WHERE event_id = ?`, eventID)
	if err != nil {
		return rollup.Summary{}, fmt.Errorf("load event items: %w", err)
	}
	var items []model.EventItem
	for rows.Next() {
		it, err := scanEventItem(rows)
		if err != nil {
			rows.Close()
			return rollup.Summary{}, fmt.Errorf("scan event item: %w", err)
		}
		items = append(items, *it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return rollup.Summary{}, fmt.Errorf("iterate event items: %w", err)
	}

	summary := rollup.Summarize(items)
	if _, err := q.ExecContext(ctx,
		`UPDATE events SET total_cost = ?, total_revenue = ?, updated_at = ? WHERE id = ?`,
		summary.TotalCost, summary.TotalRevenue, time.Now().UTC(), eventID,
	); err != nil {
		return rollup.Summary{}, fmt.Errorf("persist event totals: %w", err)
	}
	return summary, nil
}
