// Package storage contains the logic for storing application data into a local SQLite database.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	_ "github.com/mattn/go-sqlite3"

	"github.com/oddbloke/steelersconfig/internal/app"
	"github.com/oddbloke/steelersconfig/internal/migrate"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Storage provides access to the settings database.
type Storage struct {
	db *sql.DB
}

// New returns a new Storage object.
func New(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// InitDB initializes the database and returns it.
// It applies all pending migrations.
func InitDB(ctx context.Context, dsn string) (*sql.DB, error) {
	v := url.Values{}
	v.Add("_fk", "on")
	v.Add("_journal_mode", "WAL")
	v.Add("_synchronous", "normal")
	dsn2 := fmt.Sprintf("%s?%s", dsn, v.Encode())
	slog.Debug("Connecting to sqlite", "dsn", dsn2)
	db, err := sql.Open("sqlite3", dsn2)
	if err != nil {
		return nil, fmt.Errorf("open DB %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect DB %s: %w", dsn, err)
	}
	slog.Info("Connected to database", "dsn", dsn)
	if err := ApplyMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ApplyMigrations applies all new migrations to db.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	n, err := migrate.Run(ctx, db, embedMigrations)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("Database migrated", "migrations", n)
	}
	return nil
}

// convertGetError converts a "no rows" error into app.ErrNotFound.
func convertGetError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return app.ErrNotFound
	}
	return err
}
