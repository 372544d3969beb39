// Package web serves the browser client build.
package web

import (
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// Handler returns an http.Handler that serves the single page application in
// fsys. Paths that do not name a file fall back to index.html so that client
// side routes can be deep linked.
func Handler(fsys fs.FS) (http.Handler, error) {
	indexBytes, err := fs.ReadFile(fsys, "index.html")
	if err != nil {
		return nil, fmt.Errorf("reading index.html: %w", err)
	}

	static := http.FileServer(http.FS(fsys))

	serveIndex := func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(indexBytes)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cleanPath := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if cleanPath == "" || cleanPath == "." || cleanPath == "index.html" {
			serveIndex(w)
			return
		}

		if info, err := fs.Stat(fsys, cleanPath); err == nil && !info.IsDir() {
			static.ServeHTTP(w, r)
			return
		}

		// Deep-link fallback.
		serveIndex(w)
	}), nil
}
