// Package storage defines the persistence errors and driver selection shared
// by the task and conversation stores.
package storage

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when an entity does not exist or belongs to a
	// different owner. The two cases are deliberately indistinguishable so
	// that lookups never leak the existence of another user's data.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned on id collisions.
	ErrAlreadyExists = errors.New("already exists")
)

// Driver identifies a storage backend.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
	DriverMemory   Driver = "memory"
)

// ParseDriver maps a database URL to a driver. Postgres URLs keep their
// scheme, "memory" selects the in-process store, anything else is treated as
// a SQLite file path.
func ParseDriver(url string) (Driver, error) {
	switch {
	case url == "" || url == "memory" || url == ":memory:":
		return DriverMemory, nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DriverPostgres, nil
	case strings.HasPrefix(url, "sqlite://"):
		return DriverSQLite, nil
	case strings.Contains(url, "://"):
		return "", fmt.Errorf("unsupported database url scheme: %s", url)
	default:
		return DriverSQLite, nil
	}
}

// SQLitePath strips the optional sqlite:// scheme from a database URL.
func SQLitePath(url string) string {
	return strings.TrimPrefix(url, "sqlite://")
}
