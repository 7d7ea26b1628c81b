package migrate

import "embed"

// Embedded carries the SQL migrations inside every binary so dev auto-run and
// tests do not depend on the working directory.
//
//go:embed migrations/*.sql
var Embedded embed.FS

const embeddedDir = "migrations"
