package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"oppradar/ingest-service/internal/model"
)

// PreferencesKey is the settings key the scorer's preference profile lives
// under. Other keys (mailbox tokens, cursors) share the same table.
const PreferencesKey = "user_preferences"

// GetSetting returns the raw JSON value stored under key, or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting writes value under key, replacing any previous value.
func (s *Store) SetSetting(ctx context.Context, key string, value json.RawMessage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2::jsonb)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// LoadPreferences reads the saved preference profile, falling back to the
// built-in defaults when none has been saved yet.
func (s *Store) LoadPreferences(ctx context.Context) (model.Preferences, error) {
	raw, err := s.GetSetting(ctx, PreferencesKey)
	if errors.Is(err, ErrNotFound) {
		return model.DefaultPreferences(), nil
	}
	if err != nil {
		return model.Preferences{}, err
	}
	var prefs model.Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return model.Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	if len(prefs.Keywords) == 0 && len(prefs.Locations) == 0 {
		return model.DefaultPreferences(), nil
	}
	return prefs, nil
}
