// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
	"strings"
)

// Dispatch routes requests whose path starts with apiPrefix to api, and
// everything else to pages. Page views never see API requests.
func Dispatch(apiPrefix string, api, pages http.Handler) http.Handler {
	// "/api" without the trailing slash belongs to the API as well.
	apiRoot := strings.TrimSuffix(apiPrefix, "/")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, apiPrefix) || r.URL.Path == apiRoot {
			api.ServeHTTP(w, r)

			return
		}

		pages.ServeHTTP(w, r)
	})
}
