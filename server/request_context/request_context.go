// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package requestcontext provides per-request state management for HTTP handlers.

This package is separate because Go disallows a cyclic import graph.
*/
package request_context

import (
	"context"
	"net/http"

	"github.com/KubriakZahoor107/Art-Culture-Fork/core/idgen"
)

// RequestContext carries request-scoped data through the middleware chain.
type RequestContext struct {
	// RequestID is an identifier for tracing requests.
	RequestID string

	// Nonce is the Content-Security-Policy nonce for this response. Empty
	// when nonces are disabled.
	Nonce string

	// Holds any critical error encountered during request processing.
	//
	// Automatically populated by middleware.CatchError when handlers return errors,
	// which interrupts normal response handling and renders an error page instead.
	RequestError error

	// HTTP status code to be sent in the response. Defaults to 200 OK.
	StatusCode int
}

// requestContextKeyType defines a unique type for a RequestContext key.
type requestContextKeyType struct{}

// requestContextKey is a unique key used to access RequestContext
// values from a context.Context.
var requestContextKey = requestContextKeyType{}

// WithRequestContext initializes a new request context and attaches it to
// the parent context. A fresh nonce is generated when withNonce is set.
func WithRequestContext(ctx context.Context, withNonce bool) context.Context {
	rc := RequestContext{
		RequestID:  idgen.Make(),
		StatusCode: http.StatusOK,
	}

	if withNonce {
		rc.Nonce = idgen.Nonce()
	}

	return context.WithValue(ctx, requestContextKey, &rc)
}

// FromContext extracts the RequestContext from a context, always returning
// a valid pointer.
//
// If no context is found, returns a zero-value instance.
func FromContext(ctx context.Context) *RequestContext {
	if v := ctx.Value(requestContextKey); v != nil {
		if rc, ok := v.(*RequestContext); ok {
			return rc
		}
	}

	return &RequestContext{}
}

// FromRequest is a convenience wrapper for extracting RequestContext
// directly from HTTP requests.
func FromRequest(r *http.Request) *RequestContext {
	return FromContext(r.Context())
}
