package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/clubledger/internal/model"
)

type GeneralCostStore struct {
	db *sql.DB
}

func NewGeneralCostStore(db *sql.DB) *GeneralCostStore {
	return &GeneralCostStore{db: db}
}

type GeneralCostInput struct {
	Description string
	Amount      float64
	Category    string
	Date        time.Time
}

func scanGeneralCost(scanner interface{ Scan(...any) error }) (*model.GeneralCost, error) {
	var c model.GeneralCost
	err := scanner.Scan(&c.ID, &c.UserID, &c.Description, &c.Amount, &c.Category, &c.Date, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const generalCostCols = `id, user_id, description, amount, category, date, created_at`

func (s *GeneralCostStore) Create(ctx context.Context, userID int64, in GeneralCostInput) (*model.GeneralCost, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO general_costs (user_id, description, amount, category, date) VALUES (?, ?, ?, ?, ?)`,
		userID, in.Description, in.Amount, in.Category, in.Date,
	)
	if err != nil {
		return nil, fmt.Errorf("insert general cost: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

func (s *GeneralCostStore) GetByID(ctx context.Context, userID, id int64) (*model.GeneralCost, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+generalCostCols+` FROM general_costs WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanGeneralCost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get general cost: %w", err)
	}
	return c, nil
}

// List returns the user's costs, newest date first.
func (s *GeneralCostStore) List(ctx context.Context, userID int64) ([]model.GeneralCost, error) {
	return s.list(ctx, `SELECT `+generalCostCols+` FROM general_costs WHERE user_id = ?
		ORDER BY date DESC, id DESC`, userID)
}

func (s *GeneralCostStore) ListRecent(ctx context.Context, userID int64, limit int) ([]model.GeneralCost, error) {
	return s.list(ctx, `SELECT `+generalCostCols+` FROM general_costs WHERE user_id = ?
		ORDER BY date DESC, id DESC LIMIT ?`, userID, limit)
}

func (s *GeneralCostStore) list(ctx context.Context, query string, args ...any) ([]model.GeneralCost, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list general costs: %w", err)
	}
	defer rows.Close()

	var costs []model.GeneralCost
	for rows.Next() {
		c, err := scanGeneralCost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan general cost: %w", err)
		}
		costs = append(costs, *c)
	}
	return costs, rows.Err()
}

func (s *GeneralCostStore) Update(ctx context.Context, userID, id int64, in GeneralCostInput) (*model.GeneralCost, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE general_costs SET description = ?, amount = ?, category = ?, date = ? WHERE id = ? AND user_id = ?`,
		in.Description, in.Amount, in.Category, in.Date, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update general cost: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID, id)
}

func (s *GeneralCostStore) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM general_costs WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete general cost: %w", err)
	}
	return checkAffected(res)
}
