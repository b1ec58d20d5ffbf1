// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils_test

import (
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KubriakZahoor107/Art-Culture-Fork/server/utils"
)

func TestParseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		expected string
	}{
		{"Valid URL", "https://example.com", false, "https://example.com"},
		{"Valid URL with path", "https://example.com/path", false, "https://example.com/path"},
		{"Missing scheme", "example.com", true, ""},
		{"Missing host", "https://", true, ""},
		{"Trailing slash", "https://example.com/", false, "https://example.com"},
		{"Path with trailing slash", "http://localhost:5173/path/", false, "http://localhost:5173/path"},
		{"Empty URL", "", true, ""},
		{"URL with query params", "https://example.com/path?q=test", false, "https://example.com/path?q=test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := utils.ParseURL(tt.urlStr, "Test")
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.String())
		})
	}
}

func TestRequestTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/exhibitions", "/exhibitions"},
		{"/search?q=art", "/search?q=art"},
		{"/posts/12?page=2#comments", "/posts/12?page=2"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			u, err := url.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, utils.RequestTarget(u))
		})
	}
}

func TestGetOriginFromRequest(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "http://art.example/page", nil)
	r.RemoteAddr = "127.0.0.1:41000"
	assert.Equal(t, "http://art.example", utils.GetOriginFromRequest(r))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://art.example", utils.GetOriginFromRequest(r))

	// Forwarded headers from public peers are ignored.
	r.RemoteAddr = "203.0.113.7:41000"
	assert.Equal(t, "http://art.example", utils.GetOriginFromRequest(r))
}

func TestNewHTTPClientUnix(t *testing.T) {
	t.Parallel()

	client, base := utils.NewHTTPClient("unix:/run/renderer.sock")
	require.NotNil(t, client)
	assert.Equal(t, "http://unix", base)

	_, base = utils.NewHTTPClient("http://127.0.0.1:13714/")
	assert.Equal(t, "http://127.0.0.1:13714", base)
}
