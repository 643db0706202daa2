// Package appfs exposes build-time embedded assets: database migrations
// and email templates.
package appfs

import "embed"

//go:embed migrations templates
var FS embed.FS
