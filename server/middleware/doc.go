// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package middleware provides the HTTP middleware chain of the server: timing,
compression, security headers, CORS and centralized error handling.

The chain itself is assembled in the router package.
*/
package middleware
