package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/clubledger/internal/model"
)

type MenuItemStore struct {
	db *sql.DB
}

func NewMenuItemStore(db *sql.DB) *MenuItemStore {
	return &MenuItemStore{db: db}
}

type MenuItemInput struct {
	Name           string
	Description    string
	Category       string
	RecipeID       *int64
	BaseCost       float64
	SuggestedPrice float64
}

func scanMenuItem(scanner interface{ Scan(...any) error }) (*model.MenuItem, error) {
	var m model.MenuItem
	var recipeID sql.NullInt64
	err := scanner.Scan(
		&m.ID, &m.UserID, &m.Name, &m.Description, &m.Category, &recipeID,
		&m.BaseCost, &m.SuggestedPrice, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if recipeID.Valid {
		m.RecipeID = &recipeID.Int64
	}
	return &m, nil
}

const menuItemCols = `id, user_id, name, description, category, recipe_id, base_cost, suggested_price, created_at`

// Create inserts a menu item. A recipe link must name one of the user's recipes.
func (s *MenuItemStore) Create(ctx context.Context, userID int64, in MenuItemInput) (*model.MenuItem, error) {
	if err := ownsRecipe(ctx, s.db, userID, in.RecipeID); err != nil {
		return nil, err
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO menu_items (user_id, name, description, category, recipe_id, base_cost, suggested_price)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, in.Name, in.Description, in.Category, nullInt64(in.RecipeID), in.BaseCost, in.SuggestedPrice,
	)
	if err != nil {
		return nil, fmt.Errorf("insert menu item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

func (s *MenuItemStore) GetByID(ctx context.Context, userID, id int64) (*model.MenuItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+menuItemCols+` FROM menu_items WHERE id = ? AND user_id = ?`, id, userID)
	m, err := scanMenuItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get menu item: %w", err)
	}
	return m, nil
}

func (s *MenuItemStore) List(ctx context.Context, userID int64) ([]model.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+menuItemCols+` FROM menu_items WHERE user_id = ? ORDER BY name COLLATE NOCASE ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	var items []model.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

func (s *MenuItemStore) Update(ctx context.Context, userID, id int64, in MenuItemInput) (*model.MenuItem, error) {
	if err := ownsRecipe(ctx, s.db, userID, in.RecipeID); err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE menu_items SET name = ?, description = ?, category = ?, recipe_id = ?, base_cost = ?, suggested_price = ?
		 WHERE id = ? AND user_id = ?`,
		in.Name, in.Description, in.Category, nullInt64(in.RecipeID), in.BaseCost, in.SuggestedPrice, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update menu item: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID, id)
}

func (s *MenuItemStore) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	return checkAffected(res)
}

// RefreshBaseCost copies the linked recipe's cached unit cost into base_cost.
func (s *MenuItemStore) RefreshBaseCost(ctx context.Context, userID, id int64) (*model.MenuItem, error) {
	m, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotFound
	}
	if m.RecipeID == nil {
		return nil, ErrNoRecipe
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE menu_items SET base_cost = (SELECT calculated_cost FROM recipes WHERE id = ?)
		 WHERE id = ? AND user_id = ?`,
		*m.RecipeID, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("refresh menu item cost: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

func ownsRecipe(ctx context.Context, q querier, userID int64, recipeID *int64) error {
	if recipeID == nil {
		return nil
	}
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipes WHERE id = ? AND user_id = ?`, *recipeID, userID,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("check recipe owner: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recipe %d: %w", *recipeID, ErrNotFound)
	}
	return nil
}
