//go:build !dev

package resources

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var staticFS embed.FS

// Assets are embedded; browsers revalidate hourly since names are not hashed.
const cacheControl = "public, max-age=3600"

func assets() fs.FS {
	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return fsys
}
