package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ContainsFold reports whether substr is within any of fields, ignoring case.
func ContainsFold(substr string, fields ...string) bool {
	substr = strings.ToLower(substr)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), substr) {
			return true
		}
	}
	return false
}

func NewID() string {
	return uuid.New().String()
}

// Now returns the current UTC time truncated to microseconds (postgres precision).
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// IsValidID reports whether id looks like an ID generated by NewID.
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
