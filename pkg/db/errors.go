package db

import "strings"

// IsUniqueViolation reports whether the error references a unique constraint
// violation. When constraintName is provided the check is scoped to that
// constraint; otherwise any duplicate-key error matches. SQLite phrases the
// failure differently from Postgres, so both spellings are recognized.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
