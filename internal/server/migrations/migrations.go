// Package migrations embeds the goose schema migrations shared by the
// postgres and sqlite backends. The SQL is kept portable across the two
// dialects.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
