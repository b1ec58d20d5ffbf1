// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package render

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KubriakZahoor107/Art-Culture-Fork/core/audit"
)

// Request is one render request.
type Request struct {
	// URL is the request path and query, e.g. "/search?q=icons".
	URL string

	// AcceptLanguage selects the metadata locale.
	AcceptLanguage string

	// RequestID ties the render span to the HTTP request in logs.
	RequestID string
}

// Bridge runs a Provider for page requests.
type Bridge struct {
	provider Provider
	table    *MetaTable
	timeout  time.Duration
}

// NewBridge returns a Bridge rendering with provider and selecting metadata
// from table. A non-positive timeout disables the time limit.
func NewBridge(provider Provider, table *MetaTable, timeout time.Duration) *Bridge {
	return &Bridge{provider: provider, table: table, timeout: timeout}
}

type outcome struct {
	result Result
	err    error
}

// Render produces the Result for req.
//
// The returned error is always an *Error: KindTimeout when the provider did
// not finish in time, KindRender for everything else. A Result is never
// returned together with an error.
func (b *Bridge) Render(ctx context.Context, req Request) (Result, error) {
	span := audit.Span{
		Destination: audit.ToRenderer,
		RequestID:   req.RequestID,
		Method:      "RENDER",
		URL:         req.URL,
	}

	ctx = span.Begin(ctx)

	result, err := b.render(ctx, req)

	span.End()
	span.Size = len(result.HTML)
	span.Error = err

	if err == nil {
		span.StatusCode = 200
	}

	span.Log()

	return result, err
}

func (b *Bridge) render(ctx context.Context, req Request) (Result, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error().
					Str("request_id", req.RequestID).
					Str("url", req.URL).
					Bytes("stack", debug.Stack()).
					Msgf("Render module panicked: %v", recovered)

				done <- outcome{err: fmt.Errorf("%w: %v", ErrPanic, recovered)}
			}
		}()

		result, err := b.provider.Render(ctx, req.URL)
		done <- outcome{result: result, err: err}
	}()

	var out outcome

	select {
	case out = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, &Error{Kind: KindTimeout, URL: req.URL, Err: fmt.Errorf("%w after %s", ErrTimeout, b.timeout)}
		}

		return Result{}, &Error{Kind: KindRender, URL: req.URL, Err: ctx.Err()}
	}

	if out.err != nil {
		if errors.Is(out.err, context.DeadlineExceeded) {
			return Result{}, &Error{Kind: KindTimeout, URL: req.URL, Err: fmt.Errorf("%w: %w", ErrTimeout, out.err)}
		}

		return Result{}, &Error{Kind: KindRender, URL: req.URL, Err: out.err}
	}

	result := out.result

	if strings.TrimSpace(result.HTML) == "" {
		return Result{}, &Error{Kind: KindRender, URL: req.URL, Err: ErrEmptyMarkup}
	}

	if err := ValidateFragment(result.HTML); err != nil {
		return Result{}, &Error{Kind: KindRender, URL: req.URL, Err: err}
	}

	if err := ValidateFragment(result.Head); err != nil {
		return Result{}, &Error{Kind: KindRender, URL: req.URL, Err: fmt.Errorf("head: %w", err)}
	}

	if b.table != nil {
		result.Meta = result.Meta.merge(b.table.Lookup(RouteKey(req.URL), req.AcceptLanguage))
	}

	return result, nil
}
