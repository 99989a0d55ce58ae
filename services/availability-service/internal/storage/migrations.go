package storage

import "embed"

// Migrations holds the service schema, applied with db.Migrate(url, Migrations, MigrationsDir).
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"
