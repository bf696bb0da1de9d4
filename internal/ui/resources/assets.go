// Package resources serves the viewer's static assets.
package resources

import (
	"io/fs"
	"net/http"
)

// Prefix is the URL prefix static assets are mounted under.
const Prefix = "/static/"

// StaticPath returns the URL path for a static asset.
func StaticPath(name string) string {
	return Prefix + name
}

// Handler returns an HTTP handler serving the static assets under Prefix.
func Handler() http.Handler {
	fileServer := http.StripPrefix(Prefix, http.FileServer(http.FS(assets())))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cacheControl)
		fileServer.ServeHTTP(w, r)
	})
}

// ReadFile returns the content of a static asset.
func ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(assets(), name)
}
