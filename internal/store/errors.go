package store

import (
	"context"
	"database/sql"
	"errors"
)

var (
	// ErrNotFound is returned by write operations whose target row does not
	// exist or belongs to another user. Plain lookups return nil, nil instead.
	ErrNotFound = errors.New("not found")

	// ErrIngredientInUse blocks deleting an ingredient that a recipe still lists.
	ErrIngredientInUse = errors.New("ingredient is used by a recipe")

	ErrEmailTaken = errors.New("email already registered")

	// ErrNoRecipe is returned when refreshing the cost of a menu item that is
	// not linked to a recipe.
	ErrNoRecipe = errors.New("menu item has no recipe")
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
