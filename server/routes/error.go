// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"io"
	"net/http"

	"github.com/KubriakZahoor107/Art-Culture-Fork/server/request_context"
)

// ErrorPage writes a plain text error page using the status code and error
// stored in the request context. The error message is only included when
// verbose is set.
func ErrorPage(w http.ResponseWriter, r *http.Request, verbose bool) {
	ctx := request_context.FromRequest(r)

	statusCode := ctx.StatusCode
	if statusCode < http.StatusBadRequest {
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)

	body := http.StatusText(statusCode)
	if verbose && ctx.RequestError != nil {
		body += "\n\n" + ctx.RequestError.Error()
	}

	if ctx.RequestID != "" {
		body += "\n\nRequest ID: " + ctx.RequestID
	}

	_, _ = io.WriteString(w, body+"\n")
}
