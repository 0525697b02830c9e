package migrations

import "embed"

// FS contains embedded SQLite migrations for best-score storage.
//
//go:embed *.sql
var FS embed.FS
