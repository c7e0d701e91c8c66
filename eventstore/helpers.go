package eventstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// isUniqueViolation reports whether err is a unique-constraint violation,
// the signal that (aggregate_id, aggregate_sequence) or the event id
// collided with a concurrently committed writer.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// H2-in-MySQL-mode reports duplicate keys via driver-specific error
	// text rather than a typed error; fall back to a substring check so
	// the test dialect exercises the same ConcurrencyError path.
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate")
}

func coerceTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case []byte:
		return time.Parse(time.RFC3339Nano, string(t))
	case string:
		return time.Parse(time.RFC3339Nano, t)
	default:
		return time.Time{}, fmt.Errorf("eventstore: unexpected created_at scan type %T", v)
	}
}
