package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/dukerupert/clubledger/internal/database"
	"github.com/dukerupert/clubledger/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var userSeq int

func createTestUser(t *testing.T, db *sql.DB) int64 {
	t.Helper()
	userSeq++
	u, err := NewUserStore(db).Create(context.Background(),
		fmt.Sprintf("member%d@example.com", userSeq), "hash", "Member", model.RoleMember)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}
