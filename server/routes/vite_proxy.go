// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/rs/zerolog/log"
)

// VitePaths are served by the Vite dev server in development.
var VitePaths = []string{"/@vite/", "/@react-refresh", "/@id/", "/@fs/", "/src/", "/node_modules/"}

// ViteProxy forwards development asset requests to the Vite dev server,
// including its hot module replacement websocket.
func ViteProxy(target *url.URL) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Warn().
			Err(err).
			Str("url", r.URL.String()).
			Str("target", target.String()).
			Msg("Vite dev server unreachable")

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("Vite dev server unreachable\n"))
	}

	return proxy
}
