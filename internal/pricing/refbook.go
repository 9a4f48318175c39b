package pricing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/clearline/speclens/internal/models"
)

// RefBook is the sqlite-backed direct lookup table for pricing reference
// codes. It bypasses similarity search when an infraction carries a literal
// code.
type RefBook struct {
	db *sql.DB
}

// NewRefBook opens or creates the reference book database at dbPath and
// initializes the schema. Parent directories are created if they do not exist.
func NewRefBook(dbPath string) (*RefBook, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &RefBook{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pricing_entries (
		ref_code TEXT PRIMARY KEY,
		unit_description TEXT NOT NULL,
		rate REAL,
		unit_type TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Upsert inserts or updates entries by reference code.
func (r *RefBook) Upsert(ctx context.Context, entries []models.PricingEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, e := range entries {
		var rate sql.NullFloat64
		if e.Rate != nil {
			rate = sql.NullFloat64{Float64: *e.Rate, Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO pricing_entries (ref_code, unit_description, rate, unit_type)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(ref_code) DO UPDATE SET
			   unit_description = excluded.unit_description,
			   rate = excluded.rate,
			   unit_type = excluded.unit_type`,
			e.RefCode, e.UnitDescription, rate, e.UnitType,
		)
		if err != nil {
			return fmt.Errorf("upsert %s: %w", e.RefCode, err)
		}
	}
	return tx.Commit()
}

// ReplaceAll clears the book and inserts entries (replace-mode ingest).
func (r *RefBook) ReplaceAll(ctx context.Context, entries []models.PricingEntry) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM pricing_entries`); err != nil {
		return fmt.Errorf("clear pricing entries: %w", err)
	}
	return r.Upsert(ctx, entries)
}

// GetByRefCode returns the entry for code, or (nil, nil) when absent.
func (r *RefBook) GetByRefCode(ctx context.Context, code string) (*models.PricingEntry, error) {
	var e models.PricingEntry
	var rate sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT ref_code, unit_description, rate, unit_type FROM pricing_entries WHERE ref_code = ?`,
		code,
	).Scan(&e.RefCode, &e.UnitDescription, &rate, &e.UnitType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", code, err)
	}
	if rate.Valid {
		v := rate.Float64
		e.Rate = &v
	}
	return &e, nil
}

// Count returns the number of entries in the book.
func (r *RefBook) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pricing_entries`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the database.
func (r *RefBook) Close() error {
	return r.db.Close()
}
