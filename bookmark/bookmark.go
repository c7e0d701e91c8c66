// Package bookmark persists the named consumer -> sequence mapping:
// each async processor's progress through the log, so a restart resumes
// from where it left off rather than replaying (or skipping) the whole
// store.
package bookmark

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jules-labs/eventcore/eventstore"
)

// Bookmark is a consumer's last successfully processed store-global
// sequence. The zero value (sequence 0) is what an unknown consumer
// name reads as.
type Bookmark struct {
	Sequence int64
}

// Store is a sqlx-backed bookmark table. Reads and writes are each their
// own transaction; there is no ordering guarantee between different
// consumer names, and at most one writer per name in practice (the store
// itself does not arbitrate races — last writer for a name wins).
type Store struct {
	db      *sqlx.DB
	dialect eventstore.Dialect
}

// New builds a Store over db for the given dialect, mirroring
// eventstore.New's dialect-aware upsert handling so bookmark persistence
// works against every dialect the event store itself supports.
func New(db *sqlx.DB, dialect eventstore.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// BookmarkFor returns the named consumer's current bookmark, or
// Bookmark{Sequence: 0} if the name has never been saved.
func (s *Store) BookmarkFor(ctx context.Context, name string) (Bookmark, error) {
	var seq int64
	err := s.db.GetContext(ctx, &seq, s.db.Rebind(`SELECT value FROM bookmarks WHERE name = ?`), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Bookmark{Sequence: 0}, nil
		}
		return Bookmark{}, fmt.Errorf("bookmark: read %q: %w", name, err)
	}
	return Bookmark{Sequence: seq}, nil
}

// Save advances name's bookmark to b.Sequence, creating the row on the
// first Save for that name and updating it in place afterwards.
// BookmarkFor never writes a row; an unsaved name simply reads as 0.
func (s *Store) Save(ctx context.Context, name string, b Bookmark) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.BookmarkUpsertSQL(), name, b.Sequence); err != nil {
		return fmt.Errorf("bookmark: save %q: %w", name, err)
	}
	return nil
}
