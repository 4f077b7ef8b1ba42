// Package store provides SQLite persistence for the four per-user
// collections. Every table carries a UNIQUE(user_id, media_id, media_type)
// constraint so add/upsert is atomic at the database rather than a
// check-then-act in application code, and every query is scoped to the
// owning user.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

type Store struct {
	sqldb *sql.DB
	db    *bun.DB
}

type WatchLaterEntry struct {
	bun.BaseModel `bun:"table:watch_later,alias:wl"`

	ID        string `bun:"id,pk"`
	UserID    string `bun:"user_id,notnull"`
	MediaID   int64  `bun:"media_id,notnull"`
	MediaType string `bun:"media_type,notnull"`
	CreatedAt string `bun:"created_at,notnull"`
}

type HiddenGemEntry struct {
	bun.BaseModel `bun:"table:hidden_gems,alias:hg"`

	ID        string           `bun:"id,pk"`
	UserID    string           `bun:"user_id,notnull"`
	MediaID   int64            `bun:"media_id,notnull"`
	MediaType string           `bun:"media_type,notnull"`
	Notes     sql.Null[string] `bun:"notes,nullzero"`
	CreatedAt string           `bun:"created_at,notnull"`
}

type WatchStatusEntry struct {
	bun.BaseModel `bun:"table:watch_status,alias:ws"`

	ID        string           `bun:"id,pk"`
	UserID    string           `bun:"user_id,notnull"`
	MediaID   int64            `bun:"media_id,notnull"`
	MediaType string           `bun:"media_type,notnull"`
	Status    string           `bun:"status,notnull"`
	Notes     sql.Null[string] `bun:"notes,nullzero"`
	CreatedAt string           `bun:"created_at,notnull"`
	UpdatedAt string           `bun:"updated_at,notnull"`
}

type ReviewEntry struct {
	bun.BaseModel `bun:"table:reviews,alias:rv"`

	ID               string           `bun:"id,pk"`
	UserID           string           `bun:"user_id,notnull"`
	MediaID          int64            `bun:"media_id,notnull"`
	MediaType        string           `bun:"media_type,notnull"`
	Rating           int64            `bun:"rating,notnull"`
	ReviewText       sql.Null[string] `bun:"review_text,nullzero"`
	ContainsSpoilers bool             `bun:"contains_spoilers,notnull"`
	CreatedAt        string           `bun:"created_at,notnull"`
	UpdatedAt        string           `bun:"updated_at,notnull"`
}

const (
	StatusPlanned = "planned"
	StatusWatched = "watched"
)

func ValidStatus(s string) bool {
	return s == StatusPlanned || s == StatusWatched
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("DB_PATH is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := sqldb.PingContext(ctx); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("ping db: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	if err := initSchema(ctx, sqldb); err != nil {
		if cerr := sqldb.Close(); cerr != nil {
			return nil, fmt.Errorf("init schema: %w; close failed: %w", err, cerr)
		}
		return nil, err
	}

	bdb := bun.NewDB(sqldb, sqlitedialect.New())
	return &Store{sqldb: sqldb, db: bdb}, nil
}

func (s *Store) Close() error { return s.sqldb.Close() }

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS watch_later (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	media_id INTEGER NOT NULL,
	media_type TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(user_id, media_id, media_type)
);
CREATE TABLE IF NOT EXISTS hidden_gems (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	media_id INTEGER NOT NULL,
	media_type TEXT NOT NULL,
	notes TEXT,
	created_at TEXT NOT NULL,
	UNIQUE(user_id, media_id, media_type)
);
CREATE TABLE IF NOT EXISTS watch_status (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	media_id INTEGER NOT NULL,
	media_type TEXT NOT NULL,
	status TEXT NOT NULL,
	notes TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE(user_id, media_id, media_type)
);
CREATE TABLE IF NOT EXISTS reviews (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	media_id INTEGER NOT NULL,
	media_type TEXT NOT NULL,
	rating INTEGER NOT NULL,
	review_text TEXT,
	contains_spoilers INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	UNIQUE(user_id, media_id, media_type)
);
CREATE INDEX IF NOT EXISTS idx_watch_later_user ON watch_later(user_id);
CREATE INDEX IF NOT EXISTS idx_hidden_gems_user ON hidden_gems(user_id);
CREATE INDEX IF NOT EXISTS idx_watch_status_user ON watch_status(user_id);
CREATE INDEX IF NOT EXISTS idx_reviews_user ON reviews(user_id);
CREATE INDEX IF NOT EXISTS idx_reviews_media ON reviews(media_id, media_type);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// Watch later

func (s *Store) ListWatchLater(ctx context.Context, userID string) ([]WatchLaterEntry, error) {
	out := []WatchLaterEntry{}
	err := s.db.NewSelect().
		Model(&out).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	return out, err
}

// AddWatchLater inserts the entry unless one with the same key already
// exists, in which case it is a no-op rather than a uniqueness error.
func (s *Store) AddWatchLater(ctx context.Context, userID string, mediaID int64, mediaType string) error {
	entry := WatchLaterEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		MediaID:   mediaID,
		MediaType: mediaType,
		CreatedAt: now(),
	}
	_, err := s.db.NewInsert().
		Model(&entry).
		On("CONFLICT (user_id, media_id, media_type) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) RemoveWatchLater(ctx context.Context, userID string, mediaID int64, mediaType string) error {
	_, err := s.db.NewDelete().
		Table("watch_later").
		Where("user_id = ?", userID).
		Where("media_id = ?", mediaID).
		Where("media_type = ?", mediaType).
		Exec(ctx)
	// Removing an absent entry is a silent success.
	return err
}

// Hidden gems

func (s *Store) ListHiddenGems(ctx context.Context, userID string) ([]HiddenGemEntry, error) {
	out := []HiddenGemEntry{}
	err := s.db.NewSelect().
		Model(&out).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	return out, err
}

// AddHiddenGem inserts the entry. If it already exists and notes are given,
// the notes are replaced; without notes the add is a no-op.
func (s *Store) AddHiddenGem(ctx context.Context, userID string, mediaID int64, mediaType string, notes *string) error {
	entry := HiddenGemEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		MediaID:   mediaID,
		MediaType: mediaType,
		CreatedAt: now(),
	}
	if notes != nil {
		entry.Notes = sql.Null[string]{Valid: true, V: *notes}
	}

	q := s.db.NewInsert().Model(&entry)
	if notes != nil {
		q = q.On("CONFLICT (user_id, media_id, media_type) DO UPDATE").
			Set("notes = EXCLUDED.notes")
	} else {
		q = q.On("CONFLICT (user_id, media_id, media_type) DO NOTHING")
	}
	_, err := q.Exec(ctx)
	return err
}

func (s *Store) UpdateHiddenGemNotes(ctx context.Context, userID string, mediaID int64, mediaType, notes string) error {
	res, err := s.db.NewUpdate().
		Table("hidden_gems").
		Set("notes = ?", notes).
		Where("user_id = ?", userID).
		Where("media_id = ?", mediaID).
		Where("media_type = ?", mediaType).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRowsAffected(res)
}

func (s *Store) RemoveHiddenGem(ctx context.Context, userID string, mediaID int64, mediaType string) error {
	_, err := s.db.NewDelete().
		Table("hidden_gems").
		Where("user_id = ?", userID).
		Where("media_id = ?", mediaID).
		Where("media_type = ?", mediaType).
		Exec(ctx)
	return err
}

// Watch status

func (s *Store) ListWatchStatus(ctx context.Context, userID string) ([]WatchStatusEntry, error) {
	out := []WatchStatusEntry{}
	err := s.db.NewSelect().
		Model(&out).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Scan(ctx)
	return out, err
}

// SetWatchStatus upserts the single status row for the key.
func (s *Store) SetWatchStatus(ctx context.Context, userID string, mediaID int64, mediaType, status string, notes *string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid status %q", status)
	}

	ts := now()
	entry := WatchStatusEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		MediaID:   mediaID,
		MediaType: mediaType,
		Status:    status,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if notes != nil {
		entry.Notes = sql.Null[string]{Valid: true, V: *notes}
	}

	_, err := s.db.NewInsert().
		Model(&entry).
		On("CONFLICT (user_id, media_id, media_type) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("notes = EXCLUDED.notes").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) RemoveWatchStatus(ctx context.Context, userID string, mediaID int64, mediaType string) error {
	_, err := s.db.NewDelete().
		Table("watch_status").
		Where("user_id = ?", userID).
		Where("media_id = ?", mediaID).
		Where("media_type = ?", mediaType).
		Exec(ctx)
	return err
}

// Reviews

func (s *Store) ListReviews(ctx context.Context, userID string) ([]ReviewEntry, error) {
	out := []ReviewEntry{}
	err := s.db.NewSelect().
		Model(&out).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Scan(ctx)
	return out, err
}

// ListMediaReviews returns every user's review for one item.
func (s *Store) ListMediaReviews(ctx context.Context, mediaID int64, mediaType string) ([]ReviewEntry, error) {
	out := []ReviewEntry{}
	err := s.db.NewSelect().
		Model(&out).
		Where("media_id = ?", mediaID).
		Where("media_type = ?", mediaType).
		Order("updated_at DESC").
		Scan(ctx)
	return out, err
}

// UpsertReview writes the caller's single review row for the key, updating
// it in place when one exists.
func (s *Store) UpsertReview(ctx context.Context, userID string, mediaID int64, mediaType string, rating int64, text *string, spoilers bool) error {
	if rating < 1 || rating > 10 {
		return fmt.Errorf("rating %d out of range", rating)
	}

	ts := now()
	entry := ReviewEntry{
		ID:               uuid.NewString(),
		UserID:           userID,
		MediaID:          mediaID,
		MediaType:        mediaType,
		Rating:           rating,
		ContainsSpoilers: spoilers,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
	if text != nil {
		entry.ReviewText = sql.Null[string]{Valid: true, V: *text}
	}

	_, err := s.db.NewInsert().
		Model(&entry).
		On("CONFLICT (user_id, media_id, media_type) DO UPDATE").
		Set("rating = EXCLUDED.rating").
		Set("review_text = EXCLUDED.review_text").
		Set("contains_spoilers = EXCLUDED.contains_spoilers").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) RemoveReview(ctx context.Context, userID string, mediaID int64, mediaType string) error {
	_, err := s.db.NewDelete().
		Table("reviews").
		Where("user_id = ?", userID).
		Where("media_id = ?", mediaID).
		Where("media_type = ?", mediaType).
		Exec(ctx)
	return err
}

func expectRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
