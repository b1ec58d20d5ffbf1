// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRenderer starts a fake render process answering /render with respond.
func newRenderer(t *testing.T, respond func(url string) (int, string)) (*Client, *atomic.Int32) {
	t.Helper()

	var reloads atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /render", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		status, body := respond(req.URL)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("POST /reload", func(w http.ResponseWriter, _ *http.Request) {
		reloads.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return New(server.URL, "root"), &reloads
}

func TestRender(t *testing.T) {
	t.Parallel()

	client, _ := newRenderer(t, func(url string) (int, string) {
		body, _ := json.Marshal(map[string]string{
			"html": `<main data-url="` + url + `">ok</main>`,
			"head": `<link rel="preload" href="/fonts/a.woff2" as="font">`,
		})

		return http.StatusOK, string(body)
	})

	result, err := client.Render(context.Background(), "/museums?city=lviv")
	require.NoError(t, err)
	assert.Equal(t, `<main data-url="/museums?city=lviv">ok</main>`, result.HTML)
	assert.Contains(t, result.Head, "preload")
}

func TestRenderDocumentResponse(t *testing.T) {
	t.Parallel()

	client, _ := newRenderer(t, func(string) (int, string) {
		body, _ := json.Marshal(map[string]string{
			"html": `<!DOCTYPE html><html lang="uk"><head><title>Музеї</title>` +
				`<meta name="description" content="Музеї України"></head>` +
				`<body><div id="root"><section>list</section></div></body></html>`,
		})

		return http.StatusOK, string(body)
	})

	result, err := client.Render(context.Background(), "/museums")
	require.NoError(t, err)
	assert.Equal(t, "<section>list</section>", result.HTML)
	assert.Equal(t, "Музеї", result.Meta.Title)
	assert.Equal(t, "Музеї України", result.Meta.Description)
}

func TestRenderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"Not JSON", http.StatusOK, "<html>", ErrInvalidResponse},
		{"Array", http.StatusOK, "[]", ErrInvalidResponse},
		{"Missing html", http.StatusOK, `{"head": ""}`, ErrInvalidResponse},
		{"Bad status", http.StatusBadGateway, `{}`, ErrInvalidResponse},
		{"Document without mount", http.StatusOK, `{"html": "<!DOCTYPE html><html><body></body></html>"}`, ErrMountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, _ := newRenderer(t, func(string) (int, string) { return tt.status, tt.body })

			_, err := client.Render(context.Background(), "/")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRenderReportsRendererError(t *testing.T) {
	t.Parallel()

	client, _ := newRenderer(t, func(string) (int, string) {
		return http.StatusInternalServerError,
			`{"error": {"message": "Cannot read properties of undefined", "stack": "at App (App.jsx:12)"}}`
	})

	_, err := client.Render(context.Background(), "/posts")

	var rendererErr *RendererError
	require.ErrorAs(t, err, &rendererErr)
	assert.Equal(t, "Cannot read properties of undefined", rendererErr.Message)
	assert.Contains(t, err.Error(), "App.jsx:12")
}

func TestLoader(t *testing.T) {
	t.Parallel()

	client, reloads := newRenderer(t, func(string) (int, string) {
		return http.StatusOK, `{"html": "<p>x</p>"}`
	})

	fn, err := client.Loader(true)(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fn)
	assert.Equal(t, int32(1), reloads.Load())

	_, err = client.Loader(false)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), reloads.Load())

	result, err := fn(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", result.HTML)
}
