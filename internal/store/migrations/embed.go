// ABOUTME: Embedded goose migrations for the Postgres store
// ABOUTME: Applied in order on startup by NewPostgresStore

package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
