// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package render

import (
	"context"
	"fmt"
)

// DevProvider resolves the render module again before every render so
// source edits are picked up without a restart.
type DevProvider struct {
	load Loader
}

// NewDevProvider returns a provider that calls load on every request.
func NewDevProvider(load Loader) *DevProvider {
	return &DevProvider{load: load}
}

// Reload resolves a fresh render function.
func (p *DevProvider) Reload(ctx context.Context) (Func, error) {
	return resolve(ctx, p.load)
}

// Render reloads the render module and renders url with it.
func (p *DevProvider) Render(ctx context.Context, url string) (Result, error) {
	fn, err := p.Reload(ctx)
	if err != nil {
		return Result{}, err
	}

	return fn(ctx, url)
}

// ProdProvider resolves the render module once and reuses it.
type ProdProvider struct {
	fn Func
}

// NewProdProvider resolves the render module with load.
func NewProdProvider(ctx context.Context, load Loader) (*ProdProvider, error) {
	fn, err := resolve(ctx, load)
	if err != nil {
		return nil, err
	}

	return &ProdProvider{fn: fn}, nil
}

// Render renders url with the render module resolved at construction.
func (p *ProdProvider) Render(ctx context.Context, url string) (Result, error) {
	return p.fn(ctx, url)
}

func resolve(ctx context.Context, load Loader) (Func, error) {
	if load == nil {
		return nil, ErrNoRenderFunc
	}

	fn, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load render module: %w", err)
	}

	if fn == nil {
		return nil, ErrNoRenderFunc
	}

	return fn, nil
}
