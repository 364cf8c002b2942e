package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/clubledger/internal/model"
)

type IngredientStore struct {
	db *sql.DB
}

func NewIngredientStore(db *sql.DB) *IngredientStore {
	return &IngredientStore{db: db}
}

func scanIngredient(scanner interface{ Scan(...any) error }) (*model.Ingredient, error) {
	var i model.Ingredient
	err := scanner.Scan(&i.ID, &i.UserID, &i.Name, &i.UnitOfMeasure, &i.UnitCost, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

const ingredientCols = `id, user_id, name, unit_of_measure, unit_cost, created_at`

func (s *IngredientStore) Create(ctx context.Context, userID int64, name, unit string, unitCost float64) (*model.Ingredient, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO ingredients (user_id, name, unit_of_measure, unit_cost) VALUES (?, ?, ?, ?)`,
		userID, name, unit, unitCost,
	)
	if err != nil {
		return nil, fmt.Errorf("insert ingredient: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

func (s *IngredientStore) GetByID(ctx context.Context, userID, id int64) (*model.Ingredient, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+ingredientCols+` FROM ingredients WHERE id = ? AND user_id = ?`, id, userID)
	i, err := scanIngredient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ingredient: %w", err)
	}
	return i, nil
}

// List returns the user's ingredients ordered by name.
func (s *IngredientStore) List(ctx context.Context, userID int64) ([]model.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ingredientCols+` FROM ingredients WHERE user_id = ? ORDER BY name COLLATE NOCASE ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []model.Ingredient
	for rows.Next() {
		i, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		ingredients = append(ingredients, *i)
	}
	return ingredients, rows.Err()
}

// Update changes an ingredient and refreshes the cached cost of every recipe
// that lists it, in one transaction.
func (s *IngredientStore) Update(ctx context.Context, userID, id int64, name, unit string, unitCost float64) (*model.Ingredient, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE ingredients SET name = ?, unit_of_measure = ?, unit_cost = ? WHERE id = ? AND user_id = ?`,
		name, unit, unitCost, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update ingredient: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return nil, err
	}

	recipeIDs, err := recipesUsingIngredient(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	for _, rid := range recipeIDs {
		if _, err := refreshRecipeCost(ctx, tx, rid); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

// Delete removes an ingredient. It fails with ErrIngredientInUse while any
// recipe still lists it, leaving those recipe lines untouched.
func (s *IngredientStore) Delete(ctx context.Context, userID, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var uses int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipe_ingredients WHERE ingredient_id = ?`, id,
	).Scan(&uses); err != nil {
		return fmt.Errorf("count ingredient uses: %w", err)
	}
	if uses > 0 {
		return ErrIngredientInUse
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM ingredients WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete ingredient: %w", err)
	}
	if err := checkAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// UsageCount reports how many recipes list the ingredient.
func (s *IngredientStore) UsageCount(ctx context.Context, userID, id int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM recipe_ingredients ri
		 JOIN recipes r ON r.id = ri.recipe_id
		 WHERE ri.ingredient_id = ? AND r.user_id = ?`, id, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count ingredient uses: %w", err)
	}
	return n, nil
}

func recipesUsingIngredient(ctx context.Context, q querier, ingredientID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT recipe_id FROM recipe_ingredients WHERE ingredient_id = ?`, ingredientID)
	if err != nil {
		return nil, fmt.Errorf("list recipes using ingredient: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan recipe id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
