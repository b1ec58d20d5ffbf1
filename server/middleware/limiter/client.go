// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"errors"
	"net"
	"net/http"
	"strings"
)

var (
	errMissingClientIP = errors.New("missing client IP")
	errInvalidIPFormat = errors.New("invalid IP format")
)

// ClientInfo represents an HTTP request with associated network and rate limiting information.
//
// Instances are ephemeral and exist only for the duration of a single HTTP request lifecycle.
type ClientInfo struct {
	ip      net.IP
	network net.IPNet
	limiter *limiterWrapper
}

// newClientInfo constructs a ClientInfo from an HTTP request, resolving IP
// and network, but leaves the limiter unassigned.
func (l *Limiter) newClientInfo(r *http.Request) (*ClientInfo, error) {
	realIP := getClientIP(r)
	if realIP == "" {
		return nil, errMissingClientIP
	}

	parsedIP := net.ParseIP(realIP)
	if parsedIP == nil {
		return nil, errInvalidIPFormat
	}

	return &ClientInfo{
		ip:      parsedIP,
		network: getNetwork(parsedIP, l.opts.IPv4Prefix, l.opts.IPv6Prefix),
	}, nil
}

// checkIPLists checks if the client's IP is on the pass or block list.
//
// Returns (allowed, blocked) as a tuple - at most one can be true.
func (l *Limiter) checkIPLists(c *ClientInfo) (bool, bool) {
	if ipMatchesList(c.ip, l.opts.PassIPs) {
		return true, false
	}

	if ipMatchesList(c.ip, l.opts.BlockIPs) {
		return false, true
	}

	return false, false
}

// isExcludedPath returns true if the request path matches any of the
// excluded prefixes (skip all checks).
func (l *Limiter) isExcludedPath(r *http.Request) bool {
	path := r.URL.Path
	for _, p := range l.opts.ExcludedPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
