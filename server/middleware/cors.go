// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS returns a middleware answering cross-origin requests. An empty
// origins list allows every origin without credentials.
func CORS(origins []string) Middleware {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: len(origins) > 0,
	})

	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		c.ServeHTTP(w, r, next.ServeHTTP)
	}
}
