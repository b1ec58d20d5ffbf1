// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"fmt"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// uncompressedContentTypes are streamed and must reach the client unbuffered.
var uncompressedContentTypes = []string{"text/event-stream"}

// Compress returns a middleware that gzip-compresses responses when the
// client accepts it.
func Compress() (Middleware, error) {
	wrap, err := gzhttp.NewWrapper(gzhttp.ExceptContentTypes(uncompressedContentTypes))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip wrapper: %w", err)
	}

	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		wrap(next).ServeHTTP(w, r)
	}, nil
}
