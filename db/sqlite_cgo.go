//go:build sqlite_cgo

package db

// Build command:
//   CGO_ENABLED=1 go build -tags sqlite_cgo .

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	SQLiteDriver = "sqlite3"
	SQLiteBuild  = "cgo"
)
