// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/KubriakZahoor107/Art-Culture-Fork/server/routes"
)

// Rate limiting header names.
//
// ref: https://www.ietf.org/archive/id/draft-ietf-httpapi-ratelimit-headers-07.html
const (
	HeaderRateLimitLimit     string = "RateLimit-Limit"
	HeaderRateLimitRemaining string = "RateLimit-Remaining"
	HeaderRateLimitReset     string = "RateLimit-Reset"
	HeaderRateLimitPolicy    string = "RateLimit-Policy"
)

// tooManyRequests is the reason sent to rate limited clients.
const tooManyRequests = "Too many requests, please try again later."

// Evaluate is the entrypoint to the limiter middleware.
//
// Rejected requests are answered here and never reach next.
func (l *Limiter) Evaluate(w http.ResponseWriter, r *http.Request, next http.Handler) {
	defer l.doCleanup()

	// 1: Fast-path exclusions - check if the path is completely exempt from filtering.
	if l.isExcludedPath(r) {
		next.ServeHTTP(w, r)

		return
	}

	client, err := l.newClientInfo(r)
	if err != nil {
		// Without an address there is no network to account the request to.
		log.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Request not rate limited")
		next.ServeHTTP(w, r)

		return
	}

	// 2: IP-based filtering - explicit allow/deny lists take precedence.
	if allowed, blocked := l.checkIPLists(client); allowed {
		next.ServeHTTP(w, r)

		return
	} else if blocked {
		log.Warn().
			Str("ip", client.ip.String()).
			Str("network", client.network.String()).
			Msg("Request blocked, IP in block-list")

		routes.BlockPage(w, routes.BlockData{Reason: "Forbidden"}, http.StatusForbidden)

		return
	}

	// 3: Rate limiting.
	client.limiter = l.getOrCreateLimiter(client.network.String())

	allowed := l.checkRateLimit(client.limiter)

	l.addRateLimitHeaders(w, client, !allowed)

	if !allowed {
		log.Warn().
			Str("ip", client.ip.String()).
			Str("network", client.network.String()).
			Msg("Request blocked, exceeded rate limit")

		routes.BlockPage(w, routes.BlockData{Reason: tooManyRequests}, http.StatusTooManyRequests)

		return
	}

	next.ServeHTTP(w, r)
}

// addRateLimitHeaders adds rate limiting information to the response headers.
func (l *Limiter) addRateLimitHeaders(w http.ResponseWriter, client *ClientInfo, limited bool) {
	client.limiter.mu.Lock()
	tokens := client.limiter.limiter.TokensAt(l.now())
	client.limiter.mu.Unlock()

	perSecond := float64(l.every())

	// Calculate tokens remaining (can't exceed burst).
	remaining := max(0, int(math.Min(float64(l.opts.Max), tokens)))

	// Calculate seconds until full bucket replenishment (if not already full).
	var resetTime int64
	if deficit := float64(l.opts.Max) - tokens; deficit > 0 && perSecond > 0 {
		resetTime = int64(math.Ceil(deficit / perSecond))
	}

	headers := w.Header()
	headers.Set(HeaderRateLimitLimit, strconv.Itoa(l.opts.Max))
	headers.Set(HeaderRateLimitRemaining, strconv.Itoa(remaining))
	headers.Set(HeaderRateLimitReset, strconv.FormatInt(resetTime, 10))
	headers.Set(HeaderRateLimitPolicy, strconv.Itoa(l.opts.Max)+";w="+strconv.Itoa(int(l.opts.Window.Seconds())))

	// Retry-After is the time until a single token is available again.
	if limited && perSecond > 0 {
		retryAfter := int64(math.Ceil((1 - tokens) / perSecond))
		headers.Set("Retry-After", strconv.FormatInt(max(retryAfter, 1), 10))
	}
}
