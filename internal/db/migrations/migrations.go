// Package migrations embeds the goose migrations for the thread cache.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
