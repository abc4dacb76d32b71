// Package assets embeds the testbench template and the VPI extension
// sources rendered into every build output directory.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed testbench/*.tmpl ext/*.c ext/*.h
var assetFS embed.FS

const (
	// TestbenchTemplate renders to simbuild.v.
	TestbenchTemplate = "testbench/simbuild.v.tmpl"
	// ExtensionDir holds the C sources of the simulator bridge.
	ExtensionDir = "ext"
)

// FS exposes the embedded assets.
func FS() fs.FS {
	return assetFS
}
