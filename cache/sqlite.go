package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aluiziolira/go-seller-inventory/models"
)

// SQLiteStore keeps snapshots as JSON blobs in a sqlite table.
type SQLiteStore struct {
	db     *sql.DB
	window time.Duration
	now    func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string, window time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrCacheIO, err)
	}
	// sqlite allows one writer; a single connection serialises puts.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			seller_id TEXT NOT NULL,
			marketplace TEXT NOT NULL,
			data TEXT NOT NULL,
			captured_at INTEGER NOT NULL,
			PRIMARY KEY (seller_id, marketplace)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create table: %v", ErrCacheIO, err)
	}

	return &SQLiteStore{db: db, window: window, now: time.Now}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, sellerID, marketplace string) (*models.InventorySnapshot, bool) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM snapshots WHERE seller_id = ? AND marketplace = ?`,
		sellerID, marketplace,
	).Scan(&data)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("cache query failed", slog.String("seller_id", sellerID), slog.Any("error", err))
		}
		return nil, false
	}

	snapshot, err := decodeSnapshot([]byte(data))
	if err != nil {
		slog.Warn("cache entry unreadable", slog.String("seller_id", sellerID), slog.Any("error", err))
		return nil, false
	}
	if !snapshot.Fresh(s.now(), s.window) {
		return nil, false
	}
	return snapshot, true
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, snapshot *models.InventorySnapshot) error {
	stamped := stamp(snapshot, s.now())
	data, err := encodeSnapshot(stamped)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrCacheIO, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (seller_id, marketplace, data, captured_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(seller_id, marketplace)
		 DO UPDATE SET data = excluded.data, captured_at = excluded.captured_at`,
		stamped.SellerID, stamped.Marketplace, string(data), stamped.CapturedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrCacheIO, Key(stamped.SellerID, stamped.Marketplace), err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
