package eventstore

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// SequenceStatsStore is the per-event-class high-water-mark cache: on
// every sink, the maximum store-global sequence observed for each
// event_type is upserted, inside the sink's own transaction.
// async.Monitor computes lag from it without having to scan the whole
// events table.
type SequenceStatsStore struct {
	db      *sqlx.DB
	dialect Dialect
}

func NewSequenceStatsStore(db *sqlx.DB, dialect Dialect) *SequenceStatsStore {
	return &SequenceStatsStore{db: db, dialect: dialect}
}

// upsertSequenceStat records that eventType has now been seen at seq,
// inside tx.
// Called by Store.Sink for every event in a batch, never on its own.
func upsertSequenceStat(ctx context.Context, tx *sqlx.Tx, dialect Dialect, eventType string, seq int64) error {
	_, err := tx.ExecContext(ctx, dialect.SequenceStatUpsertSQL(), eventType, seq)
	return err
}

// LastSequence returns the maximum sequence recorded for any of
// eventClasses, or across all classes if eventClasses is empty. Unlike
// Store.LastSequence it never touches the events table itself, so it is
// safe to poll frequently from async.Monitor.
func (s *SequenceStatsStore) LastSequence(ctx context.Context, eventClasses []string) (int64, error) {
	var (
		seq sql.NullInt64
		err error
	)
	if len(eventClasses) == 0 {
		err = s.db.GetContext(ctx, &seq, `SELECT MAX(sequence) FROM event_sequence_stats`)
	} else {
		query, args, buildErr := sqlx.In(`SELECT MAX(sequence) FROM event_sequence_stats WHERE event_type IN (?)`, eventClasses)
		if buildErr != nil {
			return 0, buildErr
		}
		query = s.db.Rebind(query)
		err = s.db.GetContext(ctx, &seq, query, args...)
	}
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}
