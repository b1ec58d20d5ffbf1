// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/KubriakZahoor107/Art-Culture-Fork/render"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/compose"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/request_context"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/utils"
)

var errMethodNotAllowed = errors.New("method not allowed for page views")

// Pipeline renders page views: it loads the document template, renders the
// request URL and composes the final document.
type Pipeline struct {
	Bridge   *render.Bridge
	Template compose.TemplateSource
	Composer *compose.Composer

	// Links are sent as Link headers with every page.
	Links []string
}

// Page is the handler for every page view.
func (p *Pipeline) Page(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.WriteHeader(http.StatusMethodNotAllowed)

		return fmt.Errorf("%w: %s", errMethodNotAllowed, r.Method)
	}

	ctx := request_context.FromRequest(r)

	template, err := p.Template.Load(r.Context())
	if err != nil {
		return err
	}

	target := utils.RequestTarget(r.URL)

	result, err := p.Bridge.Render(r.Context(), render.Request{
		URL:            target,
		AcceptLanguage: r.Header.Get("Accept-Language"),
		RequestID:      ctx.RequestID,
	})
	if err != nil {
		return err
	}

	result.Meta.URL = utils.GetOriginFromRequest(r) + target

	document, err := p.Composer.Compose(template, result, ctx.Nonce)
	if err != nil {
		return fmt.Errorf("failed to compose %s: %w", r.URL.Path, err)
	}

	headers := w.Header()
	headers.Set("Content-Type", "text/html; charset=utf-8")
	headers.Add("Vary", "Accept-Language")

	for _, link := range p.Links {
		headers.Add("Link", link)
	}

	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, document); err != nil {
		return fmt.Errorf("failed to write response body: %w", err)
	}

	return nil
}
