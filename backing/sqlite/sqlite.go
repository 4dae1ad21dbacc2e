package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"go.miragespace.co/nskv/backing"

	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"
	memoryDSN  = ":memory:"
)

func init() {
	backing.Register(NewSQLiteBacking, Match)
}

// Match accepts "memory", "memory:<name>" and "sqlite:<path>" URIs. A bare
// "memory" backing is private to its handle; backings opened with the same
// "memory:<name>" share one in-memory database for as long as any of them
// is open.
func Match(uri string) bool {
	return uri == "memory" ||
		strings.HasPrefix(uri, "memory:") ||
		strings.HasPrefix(uri, "sqlite:")
}

func NewSQLiteBacking(uri string) (*backing.Backing, error) {
	dsn, err := dataSource(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}

	// A single long-lived connection: an in-memory database only exists
	// for as long as the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to sqlite database: %w", err)
	}

	return &backing.Backing{
		DB:      db,
		Dialect: Dialect{},
	}, nil
}

func dataSource(uri string) (string, error) {
	if uri == "memory" {
		return memoryDSN, nil
	}

	if name, ok := strings.CutPrefix(uri, "memory:"); ok {
		if name == "" {
			return memoryDSN, nil
		}
		return "file:" + url.PathEscape(name) + "?mode=memory&cache=shared", nil
	}

	path := strings.TrimPrefix(uri, "sqlite:")
	path = strings.TrimPrefix(path, "//")
	if path == "" {
		return "", fmt.Errorf("sqlite uri %q has no database path", uri)
	}
	return path, nil
}
