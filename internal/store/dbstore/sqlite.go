// Package dbstore implements store.HistoryStore on a single SQLite file.
//
// Schema is applied with goose from embedded SQL. Rows are read and written
// through gorm, driven by the pure-Go modernc.org/sqlite driver, which ships
// with FTS5 enabled. Every call checks a connection out of a small pool and
// returns it when done; WAL mode lets readers run while the writer appends.
package dbstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/yiblet/kopa/internal/store"
	"github.com/yiblet/kopa/internal/store/dbstore/migrations"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const (
	// driverName is the database/sql name registered by modernc.org/sqlite.
	driverName = "sqlite"

	maxOpenConns    = 4
	connMaxIdleTime = time.Minute
	busyTimeout     = 5 * time.Second
)

// SQLiteStore is a SQLite-backed implementation of store.HistoryStore
type SQLiteStore struct {
	db     *gorm.DB
	dbPath string
}

var _ store.HistoryStore = (*SQLiteStore)(nil)

// dsn builds the modernc DSN for path. Pragmas go in the DSN so that every
// pooled connection gets them, not just the first one.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return path + "?" + q.Encode()
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and brings
// its schema up to date. The parent directory must already exist.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.New(sqlite.Config{
		DriverName: driverName,
		DSN:        dsn(dbPath),
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, store.NewStorageError("open", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, store.NewStorageError("open", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	s := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return s, nil
}

// migrate applies the embedded goose migrations.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return store.NewStorageError("migrate", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, sqlDB, migrations.Migrations)
	if err != nil {
		return store.NewStorageError("migrate", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return store.NewStorageError("migrate", err)
	}

	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the connection pool
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// afterEntryInsert runs inside the append transaction between the two
// inserts. Tests replace it to simulate a failure at that point.
var afterEntryInsert = func(tx *gorm.DB) error { return nil }

// Append inserts the entry row and its text body in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, content string, observedAt time.Time) (int64, error) {
	var id int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		id, err = insertText(tx, content, observedAt)
		return err
	})
	if err != nil {
		return 0, store.NewStorageError("append", err)
	}
	return id, nil
}

// BatchEntry is one row for AppendBatch.
type BatchEntry struct {
	Content    string
	ObservedAt time.Time
}

// AppendBatch inserts many entries in a single transaction.
// Used for bulk loading, where one commit per row would dominate.
func (s *SQLiteStore) AppendBatch(ctx context.Context, batch []BatchEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, b := range batch {
			if _, err := insertText(tx, b.Content, b.ObservedAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return store.NewStorageError("append batch", err)
	}
	return nil
}

func insertText(tx *gorm.DB, content string, observedAt time.Time) (int64, error) {
	entry := &EntryModel{
		ContentType: store.ContentTypeText,
		CreatedAt:   observedAt.Unix(),
	}
	if err := tx.Create(entry).Error; err != nil {
		return 0, fmt.Errorf("failed to insert entry: %w", err)
	}

	if err := afterEntryInsert(tx); err != nil {
		return 0, err
	}

	body := &TextEntryModel{
		EntryID: entry.ID,
		Content: content,
	}
	if err := tx.Create(body).Error; err != nil {
		return 0, fmt.Errorf("failed to insert text body: %w", err)
	}

	return entry.ID, nil
}

// GetContent returns the text of entry id.
func (s *SQLiteStore) GetContent(ctx context.Context, id int64) (string, error) {
	var body TextEntryModel
	if err := s.db.WithContext(ctx).First(&body, "entry_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", store.ErrNotFound
		}
		return "", store.NewStorageError("get content", err)
	}
	return body.Content, nil
}

// Delete removes entry id. The body row is removed explicitly rather than
// through the cascade so that the delete trigger always sees it.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	var found bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&TextEntryModel{}, "entry_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete text body: %w", err)
		}
		result := tx.Delete(&EntryModel{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete entry: %w", result.Error)
		}
		found = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return store.NewStorageError("delete", err)
	}
	if !found {
		return store.ErrNotFound
	}
	return nil
}

// Count returns the total number of entries
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&EntryModel{}).Count(&count).Error; err != nil {
		return 0, store.NewStorageError("count", err)
	}
	return count, nil
}
