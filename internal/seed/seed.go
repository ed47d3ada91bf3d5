package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Simplici0/woodshop/internal/settings"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := ensureRateSettings(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureRateSettings(tx *sql.Tx, stats *Stats) error {
	exists, err := settings.Exists(context.Background(), tx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	doc, err := json.Marshal(settings.Defaults())
	if err != nil {
		return fmt.Errorf("encode default rate settings: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO rate_settings (id, document, updated_at)
		VALUES (1, ?, ?)
	`, string(doc), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("insert rate settings singleton: %w", err)
	}
	stats.Inserts++
	return nil
}
