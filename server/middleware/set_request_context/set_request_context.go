// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package set_request_context

import (
	"net/http"

	"github.com/KubriakZahoor107/Art-Culture-Fork/server/middleware"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/request_context"
)

// WithRequestContext returns a middleware that attaches a RequestContext to
// each HTTP request, with a fresh CSP nonce when withNonce is set.
func WithRequestContext(withNonce bool) middleware.Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		next.ServeHTTP(w, r.WithContext(request_context.WithRequestContext(r.Context(), withNonce)))
	}
}
