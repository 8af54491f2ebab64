package database

import "embed"

// EmbeddedMigrations, migrations/*.sql dosyalarını binary'ye gömer.
// Doğrudan kullanmak yerine Migrations() tercih edilir.
//
//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS
