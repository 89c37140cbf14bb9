// Package migrations embeds SQL migrations applied by goose at store open.
package migrations

import "embed"

// FS holds the embedded migration files.
//
//go:embed *.sql
var FS embed.FS
