package nskv

import (
	"encoding/hex"
	"regexp"
)

// DefaultNamespace is used when a Ref leaves its namespace empty.
const DefaultNamespace = "default"

const tablePrefix = "ns_"

// Namespaces are interpolated into statements as table names, so this
// allow-list is the only thing standing between a caller and the SQL text.
var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidNamespace reports whether ns may address a storage unit.
func ValidNamespace(ns string) bool {
	return namespacePattern.MatchString(ns)
}

// tableName hex-encodes ns. SQLite compares table names case-insensitively
// while namespaces are case-sensitive, so "Users" and "users" must not map
// to names that differ only in case.
func tableName(ns string) string {
	return tablePrefix + hex.EncodeToString([]byte(ns))
}
