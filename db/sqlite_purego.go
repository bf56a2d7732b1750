//go:build !sqlite_cgo

package db

// Pure Go SQLite, no C toolchain needed. Build with -tags sqlite_cgo to
// switch to the cgo driver.

import (
	_ "modernc.org/sqlite"
)

const (
	SQLiteDriver = "sqlite"
	SQLiteBuild  = "purego"
)
