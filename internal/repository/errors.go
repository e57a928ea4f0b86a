package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Unique indexes on users as GORM names them, plus SQLite's column form.
var (
	emailKeys    = []string{"idx_users_email", "users.email"}
	usernameKeys = []string{"idx_users_username", "users.username"}
)

// isDuplicate reports whether err is a unique-constraint violation, either
// translated by GORM or as raw driver text.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "Duplicate entry")
}

// duplicateColumn names the violated user index from a driver message, or
// returns nil when the message does not say. Only the text after the
// constraint marker is inspected, since MySQL echoes the offending value
// before it.
func duplicateColumn(err error) error {
	tail := constraintTail(err.Error())
	if tail == "" {
		return nil
	}
	for _, k := range emailKeys {
		if strings.Contains(tail, k) {
			return ErrEmailExists
		}
	}
	for _, k := range usernameKeys {
		if strings.Contains(tail, k) {
			return ErrUsernameExists
		}
	}
	return nil
}

func constraintTail(msg string) string {
	for _, marker := range []string{"for key ", "unique constraint ", "UNIQUE constraint failed: "} {
		if i := strings.LastIndex(msg, marker); i >= 0 {
			return msg[i+len(marker):]
		}
	}
	return ""
}
