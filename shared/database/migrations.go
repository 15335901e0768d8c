package database

import "embed"

// MigrationsFS - SQL-миграции PostgreSQL, встроенные в бинарник.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsPath - каталог внутри MigrationsFS.
const MigrationsPath = "migrations"
