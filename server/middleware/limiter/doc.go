// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package limiter rate limits requests per client network before they reach the
rendering pipeline.

Clients are grouped by IPv4/IPv6 prefix. Each network gets a token bucket that
holds the per-window maximum and refills over the window; rejected requests
get 429 and RateLimit-* headers. Pass and block lists are checked first.
*/
package limiter
