// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package views is the built-in render module: it renders the application
// shell of every known route with templ components.
//
// Rendering is a pure function of the URL.
package views

//go:generate go tool templ generate

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/KubriakZahoor107/Art-Culture-Fork/render"
)

// Render renders the page for rawURL (path and optional query).
func Render(ctx context.Context, rawURL string) (render.Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return render.Result{}, fmt.Errorf("views: invalid url %q: %w", rawURL, err)
	}

	key := render.RouteKey(u.Path)

	build, ok := pages[key]
	if !ok {
		build = notFoundPage
	}

	var buf bytes.Buffer
	if err := Shell(key, build(u)).Render(ctx, &buf); err != nil {
		return render.Result{}, fmt.Errorf("views: failed to render %s: %w", key, err)
	}

	return render.Result{HTML: buf.String()}, nil
}

// Loader resolves the built-in render module.
func Loader() render.Loader {
	return func(context.Context) (render.Func, error) {
		return Render, nil
	}
}

// Routes returns the route keys with a dedicated page.
func Routes() []string {
	keys := make([]string, 0, len(pages))
	for key := range pages {
		keys = append(keys, key)
	}

	return keys
}

func routeOf(path string) string {
	return render.RouteKey(strings.TrimSpace(path))
}
