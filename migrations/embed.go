// Package migrations embeds the SQL migration files into the binary so the
// controller can bring its state database up to date without the files
// present on disk.
package migrations

import "embed"

//go:embed *.sql
var files embed.FS

// FS holds every *.up.sql / *.down.sql pair at its root.
var FS = files
