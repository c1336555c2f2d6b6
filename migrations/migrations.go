// Package migrations embeds the engine's SQL schema migrations so the
// server and tests apply the same schema without a files-on-disk path.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
