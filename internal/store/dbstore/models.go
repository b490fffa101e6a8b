package dbstore

import (
	"github.com/yiblet/kopa/internal/store"
)

// EntryModel is one row of clipboard_entries.
// The schema itself is owned by the goose migrations, not AutoMigrate.
type EntryModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	ContentType string `gorm:"not null"`
	CreatedAt   int64  `gorm:"not null;autoCreateTime:false"` // writer clock, seconds
}

// TableName returns the table name for EntryModel
func (EntryModel) TableName() string {
	return "clipboard_entries"
}

// TextEntryModel holds the body of a text entry, keyed by the entry id.
// Inserting and deleting rows here keeps text_entries_fts in step through triggers.
type TextEntryModel struct {
	EntryID int64  `gorm:"primaryKey;autoIncrement:false"`
	Content string `gorm:"not null"`
}

// TableName returns the table name for TextEntryModel
func (TextEntryModel) TableName() string {
	return "text_entries"
}

// entryRow is the shape every read query selects.
type entryRow struct {
	ID        int64  `gorm:"column:id"`
	Content   string `gorm:"column:content"`
	CreatedAt int64  `gorm:"column:created_at"`
}

func (r entryRow) toEntry() store.Entry {
	return store.Entry{
		ID:        r.ID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
	}
}

func toEntries(rows []entryRow) []store.Entry {
	entries := make([]store.Entry, len(rows))
	for i, row := range rows {
		entries[i] = row.toEntry()
	}
	return entries
}
