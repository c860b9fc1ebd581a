// Package migrations embeds the SQL schema migrations applied by the migrate command
// and, on start-up, by the server.
package migrations

import "embed"

// FS holds every *.sql migration in this directory
//
//go:embed *.sql
var FS embed.FS
