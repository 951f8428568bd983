package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/oddbloke/steelersconfig/internal/app"
)

// GetSetting returns the value for a settings key.
// It returns app.ErrNotFound when the key does not exist.
func (st *Storage) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := st.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?;`, key).Scan(&v)
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, convertGetError(err))
	}
	return v, nil
}

// SetSetting sets the value for a settings key, overwriting any previous value.
func (st *Storage) SetSetting(ctx context.Context, key, value string) error {
	_, err := st.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO
		UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting deletes a setting. Deleting a missing key is not an error.
func (st *Storage) DeleteSetting(ctx context.Context, key string) error {
	_, err := st.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?;`, key)
	if err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// ListSettings returns all settings ordered by key.
func (st *Storage) ListSettings(ctx context.Context) ([]app.Setting, error) {
	rows, err := st.db.QueryContext(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key;`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()
	var oo []app.Setting
	for rows.Next() {
		var o app.Setting
		if err := rows.Scan(&o.Key, &o.Value, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list settings: %w", err)
		}
		o.UpdatedAt = o.UpdatedAt.UTC()
		oo = append(oo, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return oo, nil
}
