// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache keeps snapshots of fetched records in SQLite so that repeat
// runs against the same holdings or resource skip the slow API calls. A file
// lock next to the database keeps two runs from sharing one cache.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/barcode-sync/pkg/types"
)

const (
	dbFile   = "cache.db"
	lockFile = "cache.lock"
)

// ErrLocked reports that another run holds the cache directory.
var ErrLocked = errors.New("cache: locked by another run")

// AlmaKey is the snapshot key for the items of one holdings record.
func AlmaKey(holdingsID string) string {
	return "alma:" + holdingsID
}

// ASpaceKey is the snapshot key for the containers of one resource.
func ASpaceKey(resourceID int) string {
	return "aspace:" + strconv.Itoa(resourceID)
}

// Store is an open, locked record cache.
type Store struct {
	db     *sql.DB
	lock   *flock.Flock
	maxAge time.Duration
	now    func() time.Time
}

// Open locks cfg.Dir and opens or creates cfg.Dir/cache.db. It returns
// ErrLocked when another process holds the directory.
func Open(cfg types.CacheConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Dir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring cache lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, cfg.Dir)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, lock: lock, maxAge: cfg.MaxAge, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		lock.Unlock()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection and the lock.
func (s *Store) Close() error {
	dbErr := s.db.Close()
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("releasing cache lock: %w", err)
	}
	return dbErr
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			key TEXT PRIMARY KEY,
			fetched_at TEXT NOT NULL,
			count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			key TEXT NOT NULL REFERENCES snapshots(key) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (key, position)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Entry describes one cached snapshot.
type Entry struct {
	Key       string    `json:"key" yaml:"key"`
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
	Count     int       `json:"count" yaml:"count"`
}

// Expired reports whether the entry is older than maxAge. A zero maxAge
// never expires.
func (e Entry) Expired(now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && now.Sub(e.FetchedAt) > maxAge
}

func (s *Store) entry(ctx context.Context, key string) (Entry, bool, error) {
	var fetched string
	e := Entry{Key: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at, count FROM snapshots WHERE key = ?`, key,
	).Scan(&fetched, &e.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return e, false, nil
	}
	if err != nil {
		return e, false, fmt.Errorf("reading snapshot %s: %w", key, err)
	}
	e.FetchedAt, err = time.Parse(time.RFC3339Nano, fetched)
	if err != nil {
		return e, false, fmt.Errorf("parsing snapshot time for %s: %w", key, err)
	}
	return e, true, nil
}

// Get returns the records stored under key in their original order. The
// boolean is false when there is no snapshot or it has expired.
func (s *Store) Get(ctx context.Context, key string) ([]types.Record, bool, error) {
	e, ok, err := s.entry(ctx, key)
	if err != nil || !ok || e.Expired(s.now(), s.maxAge) {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM records WHERE key = ? ORDER BY position`, key)
	if err != nil {
		return nil, false, fmt.Errorf("reading records for %s: %w", key, err)
	}
	defer rows.Close()

	records := make([]types.Record, 0, e.Count)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, false, fmt.Errorf("scanning record: %w", err)
		}
		var r types.Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, false, fmt.Errorf("decoding cached record for %s: %w", key, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	if len(records) != e.Count {
		return nil, false, fmt.Errorf("snapshot %s: expected %d records, found %d", key, e.Count, len(records))
	}
	return records, true, nil
}

// Put replaces the snapshot under key with records.
func (s *Store) Put(ctx context.Context, key string, records []types.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting old records: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (key, fetched_at, count) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET fetched_at=excluded.fetched_at, count=excluded.count`,
		key, s.now().UTC().Format(time.RFC3339Nano), len(records),
	)
	if err != nil {
		return fmt.Errorf("upserting snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records (key, position, data) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, key, i, string(data)); err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// List returns every snapshot ordered by key.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, fetched_at, count FROM snapshots ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var fetched string
		if err := rows.Scan(&e.Key, &fetched, &e.Count); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if e.FetchedAt, err = time.Parse(time.RFC3339Nano, fetched); err != nil {
			return nil, fmt.Errorf("parsing snapshot time for %s: %w", e.Key, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MaxAge returns the configured expiry.
func (s *Store) MaxAge() time.Duration {
	return s.maxAge
}

// Delete removes the snapshot under key and reports whether one existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("deleting snapshot %s: %w", key, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Clear removes every snapshot and returns how many there were.
func (s *Store) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
