package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Simplici0/woodshop/internal/pricing"
)

// Store keeps the settings document in the rate_settings singleton row.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore returns a Store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Get returns the saved settings, or Defaults when none were saved.
func (s *Store) Get(ctx context.Context) (pricing.RateSettings, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM rate_settings WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults(), nil
	}
	if err != nil {
		return pricing.RateSettings{}, fmt.Errorf("query rate settings: %w", err)
	}

	var out pricing.RateSettings
	if err := json.Unmarshal([]byte(doc), &out); err != nil {
		return pricing.RateSettings{}, fmt.Errorf("decode rate settings: %w", err)
	}
	return out, nil
}

// Put validates and saves settings, replacing the previous document.
func (s *Store) Put(ctx context.Context, settings pricing.RateSettings) error {
	if err := Validate(settings); err != nil {
		return err
	}

	doc, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode rate settings: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_settings (id, document, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at
	`, string(doc), s.now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("upsert rate settings: %w", err)
	}
	return nil
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Exists reports whether a settings document was ever saved.
func Exists(ctx context.Context, q Querier) (bool, error) {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM rate_settings WHERE id = 1)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("check rate settings existence: %w", err)
	}
	return exists, nil
}
