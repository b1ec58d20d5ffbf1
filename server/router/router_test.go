// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KubriakZahoor107/Art-Culture-Fork/config"
	"github.com/KubriakZahoor107/Art-Culture-Fork/render"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/app"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/compose"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/middleware/limiter"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/routes"
)

const testTemplate = `<!DOCTYPE html>
<html lang="uk">
<head><meta charset="UTF-8"><title>Art &amp; Culture</title></head>
<body><div id="root"></div></body>
</html>`

const testManifest = `{"index.html": {"file": "assets/main.abc123.js", "isEntry": true}}`

type templateString string

func (s templateString) Load(context.Context) (string, error) {
	return string(s), nil
}

// countingProvider counts renders and fails while failing is set.
type countingProvider struct {
	calls   atomic.Int32
	failing atomic.Bool
	delay   time.Duration
}

func (p *countingProvider) Render(ctx context.Context, url string) (render.Result, error) {
	p.calls.Add(1)

	if p.failing.Load() {
		return render.Result{}, errors.New("render module crashed")
	}

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return render.Result{}, ctx.Err()
		}
	}

	return render.Result{HTML: `<main><h1>Page ` + url + `</h1></main>`}, nil
}

type testOptions struct {
	production bool
	timeout    time.Duration
	limiter    *limiter.Limiter
}

func newTestServer(t *testing.T, provider render.Provider, opts testOptions) *Router {
	t.Helper()

	var cfg config.ServerConfig
	cfg.SetDefaults()
	cfg.Production = opts.production
	cfg.Paths.ClientDir = t.TempDir()
	cfg.Paths.Uploads = t.TempDir()

	table, err := render.LoadMetaTable("")
	require.NoError(t, err)

	composeOpts := compose.Options{MountID: "root", BaseURL: "/"}
	if opts.production {
		composeOpts.Manifest, err = compose.ParseManifest([]byte(testManifest))
		require.NoError(t, err)
	}

	a := &app.App{
		Config: &cfg,
		Pipeline: &routes.Pipeline{
			Bridge:   render.NewBridge(provider, table, opts.timeout),
			Template: templateString(testTemplate),
			Composer: compose.New(composeOpts),
		},
		API:     &routes.API{Prefix: cfg.Render.APIPrefix, Mode: cfg.ModeName(), Version: config.BuildVersion},
		Limiter: opts.limiter,
	}

	router, err := New(a)
	require.NoError(t, err)

	return router
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "203.0.113.7:4000"

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	return rr
}

func TestPageViews(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{}
	router := newTestServer(t, provider, testOptions{production: true})

	rr := get(router, "/exhibitions?page=2")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	doc, err := goquery.NewDocumentFromReader(rr.Body)
	require.NoError(t, err)

	assert.Equal(t, "Page /exhibitions?page=2", doc.Find("#root h1").Text())

	script := doc.Find(`script[type="module"][src="/assets/main.abc123.js"]`)
	require.Equal(t, 1, script.Length())

	// The policy allows exactly the nonce carried by the entry script.
	nonce := script.AttrOr("nonce", "")
	require.NotEmpty(t, nonce)
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "'nonce-"+nonce+"'")

	// Every response gets a fresh nonce.
	again := get(router, "/exhibitions?page=2")
	assert.NotContains(t, again.Header().Get("Content-Security-Policy"), "'nonce-"+nonce+"'")
}

func TestAPIRequestsNeverRender(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{}
	router := newTestServer(t, provider, testOptions{production: true})

	for _, path := range []string{"/api", "/api/", "/api/posts", "/api/health"} {
		rr := get(router, path)

		assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"), path)
	}

	assert.Equal(t, http.StatusOK, get(router, "/api/health").Code)
	assert.Equal(t, http.StatusNotFound, get(router, "/api/posts").Code)
	assert.Zero(t, provider.calls.Load())
}

func TestRenderFailureIsPerRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		production bool
		wantBody   string
		hideBody   string
	}{
		{name: "production", production: true, wantBody: "Internal Server Error", hideBody: "render module crashed"},
		{name: "development", production: false, wantBody: "render module crashed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			provider := &countingProvider{}
			provider.failing.Store(true)

			router := newTestServer(t, provider, testOptions{production: tt.production})

			failed := get(router, "/posts")

			assert.Equal(t, http.StatusInternalServerError, failed.Code)
			assert.Equal(t, "text/plain; charset=utf-8", failed.Header().Get("Content-Type"))
			assert.Contains(t, failed.Body.String(), tt.wantBody)

			if tt.hideBody != "" {
				assert.NotContains(t, failed.Body.String(), tt.hideBody)
			}

			provider.failing.Store(false)

			assert.Equal(t, http.StatusOK, get(router, "/posts").Code)
		})
	}
}

func TestPageMethodNotAllowed(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{}
	router := newTestServer(t, provider, testOptions{production: true})

	req := httptest.NewRequest(http.MethodPost, "/exhibitions", nil)
	req.RemoteAddr = "203.0.113.7:4000"

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, HEAD", rr.Header().Get("Allow"))
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Zero(t, provider.calls.Load())
}

func TestRenderTimeout(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{delay: time.Second}
	router := newTestServer(t, provider, testOptions{production: true, timeout: 20 * time.Millisecond})

	rr := get(router, "/museums")

	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
}

func TestRateLimitedRequestsNeverRender(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{}
	router := newTestServer(t, provider, testOptions{
		production: true,
		limiter: limiter.New(limiter.Options{
			Window:           time.Hour,
			Max:              2,
			IPv4Prefix:       24,
			IPv6Prefix:       48,
			ExcludedPrefixes: []string{"/assets/"},
		}),
	})

	assert.Equal(t, http.StatusOK, get(router, "/").Code)
	assert.Equal(t, http.StatusOK, get(router, "/artists").Code)

	limited := get(router, "/artists")

	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.True(t, strings.HasPrefix(limited.Header().Get("Content-Type"), "application/json"))
	assert.Equal(t, int32(2), provider.calls.Load())
}

func TestDevelopmentRoutes(t *testing.T) {
	t.Parallel()

	router := newTestServer(t, &countingProvider{}, testOptions{})

	rr := get(router, "/")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	assert.NotContains(t, rr.Body.String(), "/assets/main.abc123.js")
}
