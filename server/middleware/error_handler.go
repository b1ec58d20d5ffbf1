// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/http/httptest"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/KubriakZahoor107/Art-Culture-Fork/core/audit"
	"github.com/KubriakZahoor107/Art-Culture-Fork/render"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/request_context"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/routes"
)

// ErrHandlerPanic is returned in place of a panic raised by a handler.
var ErrHandlerPanic = errors.New("handler panicked")

// CatchOptions configures CatchError.
type CatchOptions struct {
	// Verbose puts the error message in the error page, for development.
	Verbose bool

	// SkipLogging reports paths whose requests are not logged. May be nil.
	SkipLogging func(path string) bool
}

// CatchError wraps HTTP handlers that return an error, providing centralized error handling,
// response buffering, and request logging.
//
// It operates as follows:
//  1. It times the request for logging purposes.
//  2. It wraps the execution of the given handler, which has the signature
//     `func(w http.ResponseWriter, r *http.Request) error`. The handler's
//     output is buffered using an httptest.ResponseRecorder, so a failing
//     handler never leaves a partial page behind.
//  3. A panic in the handler is recovered and treated as a returned error.
//  4. Any error returned by the handler is stored in the request context.
//
// After the handler runs, it decides on the final response:
//   - If the handler returned an error, the buffered response is discarded and
//     routes.ErrorPage is written with status 504 for render timeouts, the
//     handler's own status when it already wrote one of 400 or above, and
//     500 otherwise. When the handler's status is kept, so are the headers
//     that status requires (Allow, Retry-After, WWW-Authenticate).
//   - In all other cases, the buffered response is written to the client.
//
// Finally, it logs the completed request details (status, duration, error, etc.)
// via the audit package.
func CatchError(opts CatchOptions, handler func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := request_context.FromRequest(r)

		span := audit.Span{
			Destination: audit.ToUser,
			RequestID:   ctx.RequestID,
			Method:      r.Method,
			URL:         r.URL.String(),
		}

		_ = span.Begin(r.Context())
		defer span.End()

		recorder := httptest.NewRecorder()

		ctx.RequestError = runHandler(handler, recorder, r)

		if ctx.RequestError != nil {
			ctx.StatusCode = errorStatus(ctx.RequestError, recorder.Code)

			if ctx.StatusCode == recorder.Code {
				keepErrorHeaders(w.Header(), recorder.Header())
			}

			routes.ErrorPage(w, r, opts.Verbose)
		} else {
			ctx.StatusCode = recorder.Code
			span.Size = recorder.Body.Len()

			maps.Copy(w.Header(), recorder.Header())
			w.WriteHeader(recorder.Code)

			if _, err := recorder.Body.WriteTo(w); err != nil {
				log.Err(err).Msg("Failed to write response body")
			}
		}

		span.End()
		span.StatusCode = ctx.StatusCode
		span.Error = ctx.RequestError

		// Log the application response if not excluded.
		if opts.SkipLogging == nil || !opts.SkipLogging(r.URL.Path) {
			span.Log()
		}
	}
}

// runHandler calls handler, converting a panic into ErrHandlerPanic.
func runHandler(handler func(w http.ResponseWriter, r *http.Request) error, w http.ResponseWriter, r *http.Request) (err error) {
	defer func() {
		recovered := recover()
		if recovered == nil {
			return
		}

		if recovered == http.ErrAbortHandler { //nolint:errorlint,err113
			panic(recovered)
		}

		log.Error().
			Str("url", r.URL.String()).
			Bytes("stack", debug.Stack()).
			Msg("Recovered from handler panic")

		err = fmt.Errorf("%w: %v", ErrHandlerPanic, recovered)
	}()

	return handler(w, r)
}

func errorStatus(err error, written int) int {
	switch {
	case errors.Is(err, render.ErrTimeout):
		return http.StatusGatewayTimeout
	case written >= http.StatusBadRequest:
		return written
	default:
		return http.StatusInternalServerError
	}
}

// errorHeaders are kept from a discarded response whose status is reused.
var errorHeaders = []string{"Allow", "Retry-After", "WWW-Authenticate"}

func keepErrorHeaders(dst, src http.Header) {
	for _, key := range errorHeaders {
		if values := src.Values(key); len(values) > 0 {
			dst[key] = append([]string(nil), values...)
		}
	}
}
