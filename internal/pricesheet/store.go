package pricesheet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Simplici0/woodshop/internal/pricing"
)

const itemColumns = `
	id, is_component, is_custom, collection, piece_number, variation,
	component_name, component_type, name, input, details, cost, prices,
	last_synced_settings, version, created_at, updated_at`

// Store persists items in the price_sheet_items table. Input, details, prices
// and settings snapshots are JSON documents.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert saves a new item at version 1.
func (s *Store) Insert(ctx context.Context, item Item) (Item, error) {
	item.Version = 1
	cols, err := encodeItem(item)
	if err != nil {
		return Item{}, err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO price_sheet_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, cols...); err != nil {
		return Item{}, fmt.Errorf("insert price sheet item: %w", err)
	}
	return item, nil
}

// Get loads one item.
func (s *Store) Get(ctx context.Context, id string) (Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM price_sheet_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("query price sheet item: %w", err)
	}
	return item, nil
}

// List returns items matching f, components first, then by identity.
func (s *Store) List(ctx context.Context, f Filter) ([]Item, error) {
	var (
		where []string
		args  []any
	)
	switch f.Kind {
	case KindComponent:
		where = append(where, `is_component = 1`)
	case KindCustom:
		where = append(where, `is_component = 0 AND is_custom = 1`)
	case KindPiece:
		where = append(where, `is_component = 0 AND is_custom = 0`)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + escapeLike(q) + "%"
		where = append(where, `(
			collection LIKE ? ESCAPE '\' OR piece_number LIKE ? ESCAPE '\' OR variation LIKE ? ESCAPE '\'
			OR component_name LIKE ? ESCAPE '\' OR component_type LIKE ? ESCAPE '\' OR name LIKE ? ESCAPE '\'
		)`)
		for i := 0; i < 6; i++ {
			args = append(args, like)
		}
	}

	query := `SELECT ` + itemColumns + ` FROM price_sheet_items`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY is_component DESC, is_custom, collection, piece_number, variation, component_name, name, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query price sheet items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan price sheet item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price sheet items: %w", err)
	}
	return items, nil
}

// Update replaces a stored item and bumps its version. A non-zero
// expectedVersion must match the stored version or ErrVersionConflict is
// returned and nothing is written.
func (s *Store) Update(ctx context.Context, item Item, expectedVersion int64) (Item, error) {
	cols, err := encodeItem(item)
	if err != nil {
		return Item{}, err
	}

	args := append(append([]any{}, cols[1:14]...), cols[16], item.ID, expectedVersion, expectedVersion)
	res, err := s.db.ExecContext(ctx, `
		UPDATE price_sheet_items SET
			is_component = ?, is_custom = ?, collection = ?, piece_number = ?, variation = ?,
			component_name = ?, component_type = ?, name = ?, input = ?, details = ?,
			cost = ?, prices = ?, last_synced_settings = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND (? = 0 OR version = ?)
	`, args...)
	if err != nil {
		return Item{}, fmt.Errorf("update price sheet item: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return Item{}, fmt.Errorf("update price sheet item rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, item.ID); err != nil {
			return Item{}, err
		}
		return Item{}, ErrVersionConflict
	}
	return s.Get(ctx, item.ID)
}

// Delete removes an item.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM price_sheet_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete price sheet item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete price sheet item rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ComponentCosts returns the saved cost of every component item by id.
func (s *Store) ComponentCosts(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, cost FROM price_sheet_items WHERE is_component = 1`)
	if err != nil {
		return nil, fmt.Errorf("query component costs: %w", err)
	}
	defer rows.Close()

	costs := make(map[string]float64)
	for rows.Next() {
		var (
			id   string
			cost float64
		)
		if err := rows.Scan(&id, &cost); err != nil {
			return nil, fmt.Errorf("scan component cost: %w", err)
		}
		costs[id] = cost
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate component costs: %w", err)
	}
	return costs, nil
}

// encodeItem returns column values in itemColumns order.
func encodeItem(item Item) ([]any, error) {
	input, err := json.Marshal(item.Input)
	if err != nil {
		return nil, fmt.Errorf("encode item input: %w", err)
	}
	details, err := json.Marshal(item.Details)
	if err != nil {
		return nil, fmt.Errorf("encode item details: %w", err)
	}
	prices, err := json.Marshal(item.Prices)
	if err != nil {
		return nil, fmt.Errorf("encode item prices: %w", err)
	}
	var snapshot sql.NullString
	if item.LastSyncedSettings != nil {
		raw, err := json.Marshal(item.LastSyncedSettings)
		if err != nil {
			return nil, fmt.Errorf("encode settings snapshot: %w", err)
		}
		snapshot = sql.NullString{String: string(raw), Valid: true}
	}

	return []any{
		item.ID,
		item.IsComponent,
		item.IsCustom,
		item.Collection,
		item.PieceNumber,
		item.Variation,
		item.ComponentName,
		item.ComponentType,
		item.Name,
		string(input),
		string(details),
		item.Cost,
		string(prices),
		snapshot,
		item.Version,
		formatTime(item.CreatedAt),
		formatTime(item.UpdatedAt),
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (Item, error) {
	var (
		item                   Item
		input, details, prices string
		snapshot               sql.NullString
		createdAt, updatedAt   string
	)
	if err := row.Scan(
		&item.ID,
		&item.IsComponent,
		&item.IsCustom,
		&item.Collection,
		&item.PieceNumber,
		&item.Variation,
		&item.ComponentName,
		&item.ComponentType,
		&item.Name,
		&input,
		&details,
		&item.Cost,
		&prices,
		&snapshot,
		&item.Version,
		&createdAt,
		&updatedAt,
	); err != nil {
		return Item{}, err
	}

	if err := json.Unmarshal([]byte(input), &item.Input); err != nil {
		return Item{}, fmt.Errorf("decode item input: %w", err)
	}
	if err := json.Unmarshal([]byte(details), &item.Details); err != nil {
		return Item{}, fmt.Errorf("decode item details: %w", err)
	}
	if err := json.Unmarshal([]byte(prices), &item.Prices); err != nil {
		return Item{}, fmt.Errorf("decode item prices: %w", err)
	}
	if snapshot.Valid {
		item.LastSyncedSettings = &pricing.RateSettings{}
		if err := json.Unmarshal([]byte(snapshot.String), item.LastSyncedSettings); err != nil {
			return Item{}, fmt.Errorf("decode settings snapshot: %w", err)
		}
	}

	var err error
	if item.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Item{}, fmt.Errorf("parse created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return Item{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return item, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
