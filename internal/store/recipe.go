package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/clubledger/internal/costing"
	"github.com/dukerupert/clubledger/internal/model"
)

type RecipeStore struct {
	db *sql.DB
}

func NewRecipeStore(db *sql.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

// RecipeInput holds the editable header fields of a recipe.
type RecipeInput struct {
	Name          string
	Description   string
	YieldQuantity int
}

func scanRecipe(scanner interface{ Scan(...any) error }) (*model.Recipe, error) {
	var r model.Recipe
	err := scanner.Scan(
		&r.ID, &r.UserID, &r.Name, &r.Description, &r.YieldQuantity,
		&r.CalculatedCost, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const recipeCols = `id, user_id, name, description, yield_quantity, calculated_cost, created_at, updated_at`

func (s *RecipeStore) GetByID(ctx context.Context, userID, id int64) (*model.Recipe, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recipeCols+` FROM recipes WHERE id = ? AND user_id = ?`, id, userID)
	r, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return r, nil
}

func (s *RecipeStore) List(ctx context.Context, userID int64) ([]model.Recipe, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recipeCols+` FROM recipes WHERE user_id = ? ORDER BY name COLLATE NOCASE ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []model.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, *r)
	}
	return recipes, rows.Err()
}

// ListIngredients returns the recipe's lines with per-unit quantities and the
// current ingredient details.
func (s *RecipeStore) ListIngredients(ctx context.Context, userID, recipeID int64) ([]model.RecipeIngredient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ri.id, ri.recipe_id, ri.ingredient_id, ri.quantity_used, ri.created_at,
		        i.name, i.unit_of_measure, i.unit_cost
		 FROM recipe_ingredients ri
		 JOIN recipes r ON r.id = ri.recipe_id
		 JOIN ingredients i ON i.id = ri.ingredient_id
		 WHERE ri.recipe_id = ? AND r.user_id = ?
		 ORDER BY ri.id ASC`, recipeID, userID)
	if err != nil {
		return nil, fmt.Errorf("list recipe ingredients: %w", err)
	}
	defer rows.Close()

	var lines []model.RecipeIngredient
	for rows.Next() {
		var ri model.RecipeIngredient
		if err := rows.Scan(
			&ri.ID, &ri.RecipeID, &ri.IngredientID, &ri.QuantityUsed, &ri.CreatedAt,
			&ri.Name, &ri.UnitOfMeasure, &ri.UnitCost,
		); err != nil {
			return nil, fmt.Errorf("scan recipe ingredient: %w", err)
		}
		lines = append(lines, ri)
	}
	return lines, rows.Err()
}

// Save creates (id == 0) or updates a recipe together with its ingredient
// lines, which must carry PER-UNIT quantities. Existing lines are updated in
// place, new ones inserted and missing ones deleted, then the cached unit
// cost is refreshed. Everything happens in one transaction; on any error the
// stored recipe is left as it was.
func (s *RecipeStore) Save(ctx context.Context, userID, id int64, in RecipeInput, perUnitLines []costing.Line) (*model.Recipe, error) {
	if err := costing.ValidateYield(in.YieldQuantity); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if id == 0 {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO recipes (user_id, name, description, yield_quantity) VALUES (?, ?, ?, ?)`,
			userID, in.Name, in.Description, in.YieldQuantity,
		)
		if err != nil {
			return nil, fmt.Errorf("insert recipe: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE recipes SET name = ?, description = ?, yield_quantity = ?, updated_at = ?
			 WHERE id = ? AND user_id = ?`,
			in.Name, in.Description, in.YieldQuantity, now, id, userID,
		)
		if err != nil {
			return nil, fmt.Errorf("update recipe: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return nil, err
		}
	}

	existing, err := storedLines(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	keep := make(map[int64]bool, len(perUnitLines))
	for _, l := range perUnitLines {
		if keep[l.IngredientID] {
			continue
		}
		keep[l.IngredientID] = true

		if cur, ok := existing[l.IngredientID]; ok {
			if cur.quantity == l.Quantity {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE recipe_ingredients SET quantity_used = ? WHERE id = ?`,
				l.Quantity, cur.id,
			); err != nil {
				return nil, fmt.Errorf("update recipe ingredient: %w", err)
			}
			continue
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, ingredient_id, quantity_used)
			 SELECT ?, id, ? FROM ingredients WHERE id = ? AND user_id = ?`,
			id, l.Quantity, l.IngredientID, userID,
		)
		if err != nil {
			return nil, fmt.Errorf("insert recipe ingredient: %w", err)
		}
		if err := checkAffected(res); err != nil {
			return nil, fmt.Errorf("ingredient %d: %w", l.IngredientID, err)
		}
	}

	for ingredientID, cur := range existing {
		if keep[ingredientID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE id = ?`, cur.id); err != nil {
			return nil, fmt.Errorf("delete recipe ingredient: %w", err)
		}
	}

	if _, err := refreshRecipeCost(ctx, tx, id); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

// RefreshCost recomputes the cached unit cost from current ingredient prices.
func (s *RecipeStore) RefreshCost(ctx context.Context, userID, id int64) (*model.Recipe, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var owner int64
	err = tx.QueryRowContext(ctx, `SELECT user_id FROM recipes WHERE id = ?`, id).Scan(&owner)
	if err == sql.ErrNoRows || (err == nil && owner != userID) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe owner: %w", err)
	}

	if _, err := refreshRecipeCost(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

// Delete removes a recipe and its lines. Menu items keep existing with their
// recipe link cleared.
func (s *RecipeStore) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	return checkAffected(res)
}

type storedLine struct {
	id       int64
	quantity float64
}

func storedLines(ctx context.Context, q querier, recipeID int64) (map[int64]storedLine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, ingredient_id, quantity_used FROM recipe_ingredients WHERE recipe_id = ?`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("load recipe ingredients: %w", err)
	}
	defer rows.Close()

	lines := make(map[int64]storedLine)
	for rows.Next() {
		var l storedLine
		var ingredientID int64
		if err := rows.Scan(&l.id, &ingredientID, &l.quantity); err != nil {
			return nil, fmt.Errorf("scan recipe ingredient: %w", err)
		}
		lines[ingredientID] = l
	}
	return lines, rows.Err()
}

// refreshRecipeCost prices the recipe's stored per-unit lines at current
// ingredient costs and writes the result to recipes.calculated_cost.
func refreshRecipeCost(ctx context.Context, q querier, recipeID int64) (float64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT ri.ingredient_id, ri.quantity_used, i.unit_cost
		 FROM recipe_ingredients ri
		 JOIN ingredients i ON i.id = ri.ingredient_id
		 WHERE ri.recipe_id = ?`, recipeID)
	if err != nil {
		return 0, fmt.Errorf("load recipe costs: %w", err)
	}
	var lines []costing.Line
	for rows.Next() {
		var l costing.Line
		if err := rows.Scan(&l.IngredientID, &l.Quantity, &l.UnitCost); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan recipe cost: %w", err)
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate recipe costs: %w", err)
	}

	cost := costing.UnitCost(lines)
	if _, err := q.ExecContext(ctx,
		`UPDATE recipes SET calculated_cost = ?, updated_at = ? WHERE id = ?`,
		cost, time.Now().UTC(), recipeID,
	); err != nil {
		return 0, fmt.Errorf("update recipe cost: %w", err)
	}
	return cost, nil
}
