// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantHeader string
	}{
		{name: "any origin", origin: "https://client.example", wantHeader: "*"},
		{name: "listed origin", origins: []string{"https://art.example"}, origin: "https://art.example", wantHeader: "https://art.example"},
		{name: "unlisted origin", origins: []string{"https://art.example"}, origin: "https://evil.example", wantHeader: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.Header.Set("Origin", tt.origin)

			rr := httptest.NewRecorder()
			called := false
			Wrap(CORS(tt.origins), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})).ServeHTTP(rr, req)

			assert.True(t, called)
			assert.Equal(t, tt.wantHeader, rr.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
