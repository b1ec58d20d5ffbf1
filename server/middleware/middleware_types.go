// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import "net/http"

// Middleware runs around next. It may answer the request itself instead of
// calling next.
type Middleware func(w http.ResponseWriter, r *http.Request, next http.Handler)

func Wrap(m Middleware, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m(w, r, next)
	}
}
