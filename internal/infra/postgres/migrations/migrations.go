package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is filled by the numbered files in this package; bun derives each
// migration name from its file name.
var Migrations = migrate.NewMigrations()
