// Package migrate applies embedded SQL migrations to a SQLite database.
package migrate

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ErikKalkoken/go-set"
)

type MigrateFS interface {
	fs.ReadDirFS
	fs.ReadFileFS
}

// Run applies all unapplied migrations and returns how many were applied.
//
// migrations is a filesystem containing the SQL files in a folder called "migrations".
func Run(ctx context.Context, db *sql.DB, migrations MigrateFS) (int, error) {
	if err := createMigrationTracking(ctx, db); err != nil {
		return 0, fmt.Errorf("migrate: tracking: %w", err)
	}
	n, err := applyNewMigrations(ctx, db, migrations)
	if err != nil {
		return n, fmt.Errorf("migrate: %w", err)
	}
	return n, nil
}

const createMigrationTrackingSQL = `
CREATE TABLE IF NOT EXISTS migrations(
    id INTEGER PRIMARY KEY NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	name TEXT NOT NULL,
	UNIQUE (name)
);`

func createMigrationTracking(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, createMigrationTrackingSQL)
	return err
}

func listMigrationNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM migrations ORDER BY name;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

type migration struct {
	name     string
	filename string
}

// applyNewMigrations applies any new migrations in alphabetical order.
// Each migration runs in its own transaction together with its record.
func applyNewMigrations(ctx context.Context, db *sql.DB, migrations MigrateFS) (int, error) {
	names, err := listMigrationNames(ctx, db)
	if err != nil {
		return 0, err
	}
	applied := set.Of(names...)
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return 0, err
	}
	var unapplied []migration
	for _, entry := range entries {
		fn := entry.Name()
		ext := filepath.Ext(fn)
		if ext != ".sql" {
			continue
		}
		name := strings.TrimSuffix(fn, ext)
		if applied.Contains(name) {
			continue
		}
		unapplied = append(unapplied, migration{name: name, filename: fn})
	}
	if len(unapplied) == 0 {
		slog.Debug("No new migrations to apply")
		return 0, nil
	}
	slices.SortFunc(unapplied, func(a, b migration) int {
		return cmp.Compare(a.name, b.name)
	})
	var count int
	for _, m := range unapplied {
		data, err := migrations.ReadFile("migrations/" + m.filename) // FS uses slashes on all platforms
		if err != nil {
			return count, err
		}
		if err := applyMigration(ctx, db, m.name, string(data)); err != nil {
			return count, fmt.Errorf("%s: %w", m.name, err)
		}
		count++
		slog.Info("Applied migration", "name", m.name)
	}
	return count, nil
}

func applyMigration(ctx context.Context, db *sql.DB, name, stmt string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO migrations(name) VALUES(?);`, name); err != nil {
		return err
	}
	return tx.Commit()
}
