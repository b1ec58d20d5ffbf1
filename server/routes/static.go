// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// noListingFS hides directories so that http.FileServer never lists them or
// falls back to an index.html.
type noListingFS struct {
	fs http.FileSystem
}

func (nfs noListingFS) Open(name string) (http.File, error) {
	file, err := nfs.fs.Open(name)
	if err != nil {
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()

		return nil, err
	}

	if info.IsDir() {
		_ = file.Close()

		return nil, fs.ErrNotExist
	}

	return file, nil
}

// Static serves the files below dir for requests under prefix. Directories
// are never listed.
func Static(prefix, dir string) http.Handler {
	return http.StripPrefix(strings.TrimSuffix(prefix, "/"), http.FileServer(noListingFS{http.Dir(dir)}))
}

// PublicFiles serves regular files from the production client directory and
// hands every other request to next. The document template (index.html) is
// never served as a file: pages always go through the render pipeline.
//
// Requests under assetsPrefix never reach next; a missing build asset, such
// as a chunk from a previous deployment, is answered with 404.
func PublicFiles(dir, assetsPrefix string, next http.Handler) http.Handler {
	files := http.FileServer(noListingFS{http.Dir(dir)})
	root := http.Dir(dir)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			if isPublicFile(root, r.URL.Path) {
				files.ServeHTTP(w, r)

				return
			}

			if assetsPrefix != "" && strings.HasPrefix(path.Clean("/"+r.URL.Path)+"/", assetsPrefix) {
				w.Header().Set("Cache-Control", "no-store")
				http.NotFound(w, r)

				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func isPublicFile(root http.Dir, urlPath string) bool {
	cleaned := path.Clean("/" + urlPath)
	if path.Base(cleaned) == "index.html" || cleaned == "/" {
		return false
	}

	// Build metadata such as .vite/manifest.json stays private.
	for _, segment := range strings.Split(cleaned, "/") {
		if strings.HasPrefix(segment, ".") {
			return false
		}
	}

	file, err := root.Open(cleaned)
	if err != nil {
		return false
	}
	defer file.Close()

	info, err := file.Stat()

	return err == nil && info.Mode().IsRegular()
}
