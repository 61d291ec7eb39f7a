// Package assets embeds files shipped inside the binary: the SQL migrations
// applied to the SQLite key-value store.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed sql/*.sql
var FS embed.FS

// Migrations returns the migration files rooted at "sql".
func Migrations() fs.FS {
	return FS
}
