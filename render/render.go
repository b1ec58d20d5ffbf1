// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package render turns a page URL into an HTML fragment and page metadata.
//
// The markup itself comes from a render module (a Func) resolved through a
// Loader. A Provider decides how often the module is resolved, and a Bridge
// adds what every render needs: a time limit, panic isolation, output
// validation and metadata selection.
package render

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyMarkup is returned when the render module produced no markup.
	ErrEmptyMarkup = errors.New("render module returned empty markup")

	// ErrMalformedFragment is returned when the markup is not a complete,
	// well-formed subtree.
	ErrMalformedFragment = errors.New("malformed markup fragment")

	// ErrTimeout is returned when a render does not finish in time.
	ErrTimeout = errors.New("render timed out")

	// ErrNoRenderFunc is returned when a Loader resolves no render function.
	ErrNoRenderFunc = errors.New("render module exports no render function")

	// ErrPanic is returned when the render module panicked.
	ErrPanic = errors.New("render module panicked")
)

// Result is the output of one render: a markup fragment to be placed in the
// mount element, optional extra head markup, and the page metadata.
type Result struct {
	HTML string
	Head string
	Meta Meta
}

// Func is the render module boundary: it takes a URL (path and query) and
// returns the markup for that route.
//
// A Func must not depend on state left over from earlier calls and must be
// safe to call concurrently.
type Func func(ctx context.Context, url string) (Result, error)

// Loader resolves the render module.
type Loader func(ctx context.Context) (Func, error)

// Provider produces a Result for a URL.
type Provider interface {
	Render(ctx context.Context, url string) (Result, error)
}

// Kind classifies render failures.
type Kind uint8

// Render failure kinds.
const (
	KindRender Kind = iota + 1
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindRender:
		return "render"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error describes a failed render of URL.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed for %q: %v", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
