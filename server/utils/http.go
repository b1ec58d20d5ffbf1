// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	// clientSessionCacheSize defines the size of the TLS session cache.
	clientSessionCacheSize = 20

	// maxIdleConnsPerHost defines maximum idle connections to keep per host.
	maxIdleConnsPerHost = 20

	// bufferSize defines the read and write buffer size in bytes (32KB).
	bufferSize = 32 * 1024

	dialTimeout = 5 * time.Second

	unixScheme = "unix:"

	// unixBaseURL is the placeholder origin used for requests over a unix socket.
	unixBaseURL = "http://unix"
)

// NewHTTPClient returns a client for endpoint together with the base URL
// requests should be made against.
//
// An endpoint of the form "unix:/path/to.sock" dials the socket for every
// request; anything else is used as a regular HTTP base URL.
func NewHTTPClient(endpoint string) (*http.Client, string) {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			ClientSessionCache: tls.NewLRUClientSessionCache(clientSessionCacheSize),
			MinVersion:         tls.VersionTLS12,
		},
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        0,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		WriteBufferSize:     bufferSize,
		ReadBufferSize:      bufferSize,
	}

	socketPath, isUnix := strings.CutPrefix(endpoint, unixScheme)
	if !isUnix {
		return &http.Client{Transport: transport}, strings.TrimSuffix(endpoint, "/")
	}

	transport.Proxy = nil
	transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
		var d net.Dialer

		d.Timeout = dialTimeout

		return d.DialContext(ctx, "unix", socketPath)
	}

	return &http.Client{Transport: transport}, unixBaseURL
}

// IsConnectionSecure returns whether a connection is secure.
//
// X-Forwarded-Proto is only trusted from private or loopback peers.
func IsConnectionSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return false
	}

	parsedIP := net.ParseIP(host)
	if parsedIP == nil {
		return false
	}

	if (parsedIP.IsPrivate() || parsedIP.IsLoopback()) && r.Header.Get("X-Forwarded-Proto") == "https" {
		return true
	}

	return false
}
