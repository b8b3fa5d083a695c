// Package migrations embeds SQL migration files into the binary so the
// harness can create its result schema without SQL files on disk.
package migrations

import (
	"embed"

	"github.com/openthread/silk-go/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
