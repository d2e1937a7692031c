// Package scripts embeds the Risor rule scripts and their manifest so the
// binary runs without a scripts directory on disk.
package scripts

import "embed"

//go:embed rules/*.risor rules/manifest.yaml
var FS embed.FS
