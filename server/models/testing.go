package models

import (
	"fmt"
	"testing"

	"gorm.io/gorm"
)

// InitializeTestDb opens a migrated sqlite database in a temp dir owned by t.
func InitializeTestDb(t testing.TB) *gorm.DB {
	t.Helper()

	dsn, err := SqliteDSN(t.TempDir())
	if err != nil {
		t.Fatalf("could not build test dsn: %v", err)
	}

	db, err := Open(SQLITE_DRIVER, dsn)
	if err != nil {
		t.Fatalf("could not open test db: %v", err)
	}

	if err = AutoMigrate(db); err != nil {
		t.Fatalf("automigrate failed: %v", err)
	}

	t.Cleanup(func() { Close(db) })

	return db
}

// CreateTestUser stores a user with a throwaway password.
func CreateTestUser(t testing.TB, db *gorm.DB, email string) *User {
	t.Helper()

	user := &User{Email: email, Password: fmt.Sprintf("secret-%v", email)}
	if err := CreateUser(db, user); err != nil {
		t.Fatalf("could not create test user %v: %v", email, err)
	}

	return user
}
