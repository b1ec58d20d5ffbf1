// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ParseURL parses a URL string and returns a *url.URL.
//
// The URL must be absolute; a trailing slash in the path is removed.
func ParseURL(urlStr, urlType string) (*url.URL, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s URL: %w", urlType, err)
	}

	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf(
			"%s URL is invalid: %s. Please specify a complete URL with scheme and host, e.g. https://example.com",
			urlType,
			urlStr)
	}

	parsedURL.Path = strings.TrimSuffix(parsedURL.Path, "/")

	return parsedURL, nil
}

// GetQueryParam retrieves the value of a query parameter by name.
//
// If the parameter is not present, it returns the provided default value or an empty string.
func GetQueryParam(u *url.URL, name string, defaultValue ...string) string {
	if v := u.Query().Get(name); v != "" {
		return v
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return ""
}

// GetOriginFromRequest returns the origin (scheme + host) from an HTTP request.
//
// The scheme is "https" when IsConnectionSecure reports so, "http" otherwise.
func GetOriginFromRequest(r *http.Request) string {
	scheme := "http"

	if IsConnectionSecure(r) {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}

// GetOriginFromURL extracts the scheme and host from a URL to form its origin.
//
// Returns an empty string if either scheme or host is missing.
func GetOriginFromURL(u url.URL) string {
	if u.Scheme == "" || u.Host == "" {
		return ""
	}

	return u.Scheme + "://" + u.Host
}

// RequestTarget returns the path and query of u, the form a page URL is
// passed to the render module in. An empty path becomes "/".
func RequestTarget(u *url.URL) string {
	target := u.EscapedPath()
	if target == "" {
		target = "/"
	}

	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}

	return target
}
