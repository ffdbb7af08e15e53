package sqlite

import (
	"errors"
	"strings"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// IsUniqueConstraintError reports whether err is a SQLite unique
// constraint violation. Used to treat duplicate inserts of (user, alert)
// preferences and (alert, user, channel) deliveries as "already exists".
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
