// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompress(t *testing.T) {
	t.Parallel()

	page := strings.Repeat("<p>Art &amp; Culture</p>", 200)

	compress, err := Compress()
	require.NoError(t, err)

	tests := []struct {
		name         string
		contentType  string
		acceptGzip   bool
		wantEncoding string
	}{
		{name: "html with gzip", contentType: "text/html; charset=utf-8", acceptGzip: true, wantEncoding: "gzip"},
		{name: "html without gzip", contentType: "text/html; charset=utf-8"},
		{name: "event stream", contentType: "text/event-stream", acceptGzip: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.acceptGzip {
				req.Header.Set("Accept-Encoding", "gzip")
			}

			rr := httptest.NewRecorder()
			Wrap(compress, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = io.WriteString(w, page)
			})).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantEncoding, rr.Header().Get("Content-Encoding"))

			body := rr.Body.String()
			if tt.wantEncoding == "gzip" {
				reader, err := gzip.NewReader(rr.Body)
				require.NoError(t, err)

				decoded, err := io.ReadAll(reader)
				require.NoError(t, err)

				body = string(decoded)
			}

			assert.Equal(t, page, body)
		})
	}
}
