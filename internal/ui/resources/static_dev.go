//go:build dev

package resources

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// Dev builds read assets from the source tree so edits show up on reload.
const cacheControl = "no-cache"

func assets() fs.FS {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return os.DirFS(filepath.Join("internal", "ui", "resources", "static"))
	}
	return os.DirFS(filepath.Join(filepath.Dir(filename), "static"))
}
