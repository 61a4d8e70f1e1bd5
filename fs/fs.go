// Package appfs embeds static assets shipped with the binaries:
// database migrations, email templates and the common-passwords list.
package appfs

import "embed"

//go:embed migrations all:assets
var FS embed.FS
