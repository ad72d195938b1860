// Package appfs embeds the files shipped inside the binaries.
package appfs

import "embed"

// all: keeps the "_base" layouts, which a plain directory embed skips.
//
//go:embed migrations/*.sql all:assets
var FS embed.FS
