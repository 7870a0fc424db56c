package auth

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS exposes the embedded accounts/roles/verifications schema
// under data/sql/migrations so a host application's migrator can apply it.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}
