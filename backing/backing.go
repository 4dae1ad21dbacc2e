package backing

import (
	"database/sql"
	"fmt"
)

var (
	ErrBackingNotFound = fmt.Errorf("backing: backing not found")
)

// Dialect renders the statements issued against a single table. Table names
// are validated by the caller and quoted by the dialect.
type Dialect interface {
	CreateTable(table string) string
	Upsert(table string) string
	Select(table string) string
	Delete(table string) string
	DropTable(table string) string
	// TableExists takes the unquoted table name as its only argument and
	// yields a single count column.
	TableExists() string
}

// Backing is an opened relational handle together with the dialect it speaks.
type Backing struct {
	DB      *sql.DB
	Dialect Dialect
}

func (b *Backing) Close() error {
	return b.DB.Close()
}
