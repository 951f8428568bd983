// Package testutil provides helpers for tests which need a database.
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"

	"github.com/oddbloke/steelersconfig/internal/app/storage"
)

// New creates and returns a database in memory for tests.
func New() (*sql.DB, *storage.Storage, Factory) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		panic(err)
	}
	// every connection to :memory: opens a different database
	db.SetMaxOpenConns(1)
	if err := storage.ApplyMigrations(context.Background(), db); err != nil {
		panic(err)
	}
	st := storage.New(db)
	return db, st, NewFactory(st)
}

// NewDBOnDisk creates and returns a new database on disk for tests.
// The caller is responsible for deleting the file when the tests have concluded.
func NewDBOnDisk(path string) (*sql.DB, *storage.Storage, Factory) {
	p := filepath.Join(path, "steelersconfig_test.sqlite")
	db, err := storage.InitDB(context.Background(), "file:"+p)
	if err != nil {
		panic(err)
	}
	st := storage.New(db)
	return db, st, NewFactory(st)
}

// TruncateTables purges all settings.
func TruncateTables(db *sql.DB) {
	if _, err := db.Exec(`DELETE FROM settings;`); err != nil {
		panic(err)
	}
}
