package sqlite

import (
	"strings"

	"go.miragespace.co/nskv/backing"
)

type Dialect struct{}

var _ backing.Dialect = Dialect{}

func quote(table string) string {
	return `"` + strings.ReplaceAll(table, `"`, `""`) + `"`
}

func (Dialect) CreateTable(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + quote(table) + ` ("key" TEXT NOT NULL PRIMARY KEY, "value" BLOB NOT NULL)`
}

// Upsert stores an empty blob when the bound value arrives as NULL, which
// drivers may do for zero-length byte slices.
func (Dialect) Upsert(table string) string {
	return `INSERT INTO ` + quote(table) + ` ("key", "value") VALUES (?, COALESCE(?, x'')) ON CONFLICT ("key") DO UPDATE SET "value" = excluded."value"`
}

func (Dialect) Select(table string) string {
	return `SELECT "value" FROM ` + quote(table) + ` WHERE "key" = ?`
}

func (Dialect) Delete(table string) string {
	return `DELETE FROM ` + quote(table) + ` WHERE "key" = ?`
}

func (Dialect) DropTable(table string) string {
	return `DROP TABLE ` + quote(table)
}

func (Dialect) TableExists() string {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
}
