// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"maps"
	"net/http"
	"strings"

	"github.com/KubriakZahoor107/Art-Culture-Fork/server/request_context"
)

// dynamicCSPDirectivesCount is the number of additional CSP directives added in buildCSP.
const dynamicCSPDirectivesCount = 4

var (
	// baseHeaders defines the default headers to be set in responses.
	//
	// NOTE: we intentionally don't set CORP or HSTS headers.
	baseHeaders = http.Header{
		"Referrer-Policy":        {"no-referrer"},
		"X-Frame-Options":        {"DENY"},
		"X-Content-Type-Options": {"nosniff"},
		"Permissions-Policy":     {strings.Join(defaultPermissionsPolicy, ", ")},
	}

	// baseCSP defines static CSP directives that don't change.
	baseCSP = []string{
		"base-uri 'self'",
		"default-src 'self'",
		"font-src 'self' data:",
		"object-src 'none'",
		"frame-ancestors 'none'",
		"form-action 'self'",
	}

	// defaultPermissionsPolicy defines the default Permissions-Policy header.
	defaultPermissionsPolicy = []string{
		"accelerometer=()",
		"ambient-light-sensor=()",
		"battery=()",
		"camera=()",
		"display-capture=()",
		"document-domain=()",
		"encrypted-media=()",
		"geolocation=()",
		"gyroscope=()",
		"magnetometer=()",
		"microphone=()",
		"midi=()",
		"payment=()",
		"publickey-credentials-get=()",
		"screen-wake-lock=()",
		"usb=()",
		"xr-spatial-tracking=()",
	}
)

// HeaderOptions configures SetResponseHeaders.
type HeaderOptions struct {
	// Development disables caching and relaxes the policy for the dev server.
	Development bool

	// DevOrigins are extra origins allowed for scripts, styles and
	// connections in development, such as the Vite dev server.
	DevOrigins []string

	// AssetsPrefix marks fingerprinted build assets, cached for a year.
	AssetsPrefix string

	// UploadsPrefix marks user uploads.
	UploadsPrefix string

	Version  string
	Revision string
}

// SetResponseHeaders returns a middleware adding the default security
// headers, including a Content-Security-Policy built around the request's nonce.
func SetResponseHeaders(opts HeaderOptions) Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		headers := w.Header()

		maps.Insert(headers, maps.All(baseHeaders))

		if opts.Development {
			headers.Set("Cache-Control", "no-store")
		} else {
			setCacheControl(headers, r.URL.Path, opts)
		}

		if opts.Version != "" {
			headers.Set("Art-Culture-Version", opts.Version)
		}

		if opts.Revision != "" {
			headers.Set("Art-Culture-Revision", opts.Revision)
		}

		headers.Set("Content-Security-Policy", buildCSP(request_context.FromRequest(r).Nonce, opts))

		next.ServeHTTP(w, r)
	}
}

// setCacheControl sets appropriate cache control headers by path.
func setCacheControl(headers http.Header, path string, opts HeaderOptions) {
	// Default to only storing in the browser cache and forcing revalidation
	cacheDuration := "private, no-cache"

	switch {
	// Build assets carry a content hash in their name
	case opts.AssetsPrefix != "" && strings.HasPrefix(path, opts.AssetsPrefix):
		cacheDuration = "public, max-age=31536000, immutable"
	// Uploads can be cached for a day
	case opts.UploadsPrefix != "" && strings.HasPrefix(path, opts.UploadsPrefix):
		cacheDuration = "max-age=86400"
	// Text files (robots.txt) and JSON files (manifest.json) get moderate caching (1 day)
	case strings.HasSuffix(path, ".txt") || strings.HasSuffix(path, ".webmanifest"):
		cacheDuration = "max-age=86400"
	}

	headers.Set("Cache-Control", cacheDuration)
}

func buildCSP(nonce string, opts HeaderOptions) string {
	directives := make([]string, len(baseCSP), len(baseCSP)+dynamicCSPDirectivesCount)
	copy(directives, baseCSP)

	scriptSrc := "script-src 'self'"
	styleSrc := "style-src 'self' 'unsafe-inline'"
	connectSrc := "connect-src 'self'"

	if nonce != "" {
		scriptSrc += " 'nonce-" + nonce + "'"
	} else if opts.Development {
		scriptSrc += " 'unsafe-inline'"
	}

	if opts.Development {
		for _, origin := range opts.DevOrigins {
			scriptSrc += " " + origin
			styleSrc += " " + origin
			connectSrc += " " + origin + " " + websocketOrigin(origin)
		}
	}

	directives = append(directives, scriptSrc, styleSrc, connectSrc, "img-src 'self' data: blob:")

	return strings.Join(directives, "; ") + ";"
}

// websocketOrigin maps an http(s) origin to its ws(s) counterpart, used by
// hot module replacement.
func websocketOrigin(origin string) string {
	if rest, ok := strings.CutPrefix(origin, "https://"); ok {
		return "wss://" + rest
	}

	if rest, ok := strings.CutPrefix(origin, "http://"); ok {
		return "ws://" + rest
	}

	return origin
}
