// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"

	"github.com/mitchellh/go-server-timing"
)

// WithServerTiming collects the timing metrics recorded by audit spans and
// sends them as a Server-Timing header.
func WithServerTiming(w http.ResponseWriter, r *http.Request, next http.Handler) {
	servertiming.Middleware(next, nil).ServeHTTP(w, r)
}
