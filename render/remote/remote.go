// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package remote talks to an external render process, such as the server
// bundle built from the client's entry-server module, over HTTP or a unix
// socket.
//
// The protocol is JSON: POST /render with {"url": "/path?query"} answers
// {"html": "...", "head": "...", "error": {"message": "...", "stack": "..."}}.
// POST /reload asks the process to drop its module cache.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/KubriakZahoor107/Art-Culture-Fork/render"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/utils"
)

const maxResponseBytes = 8 << 20

var (
	// ErrInvalidResponse is returned for renderer answers that are not the
	// expected JSON object.
	ErrInvalidResponse = errors.New("invalid renderer response")

	// ErrMountNotFound is returned when the renderer answered with a whole
	// document that lacks the mount element.
	ErrMountNotFound = errors.New("renderer document has no mount element")
)

// RendererError is an error reported by the render process itself.
type RendererError struct {
	Message string
	Stack   string
}

func (e *RendererError) Error() string {
	if e.Stack == "" {
		return e.Message
	}

	return e.Message + "\n\nStack:\n" + e.Stack
}

// Client is a connection to a render process. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	mountID string
}

// New returns a client for endpoint, an http(s) URL or "unix:/path/to.sock".
//
// mountID names the element whose content is used when the renderer answers
// with a whole document instead of a fragment.
func New(endpoint, mountID string) *Client {
	client, baseURL := utils.NewHTTPClient(endpoint)

	return &Client{http: client, baseURL: baseURL, mountID: mountID}
}

// Render asks the render process for url.
func (c *Client) Render(ctx context.Context, url string) (render.Result, error) {
	body, err := c.post(ctx, "/render", map[string]string{"url": url})
	if err != nil {
		return render.Result{}, err
	}

	if !gjson.ValidBytes(body) {
		return render.Result{}, fmt.Errorf("%w: not JSON", ErrInvalidResponse)
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return render.Result{}, fmt.Errorf("%w: not an object", ErrInvalidResponse)
	}

	if rendererErr := parsed.Get("error"); rendererErr.Exists() && rendererErr.Type != gjson.Null {
		return render.Result{}, &RendererError{
			Message: rendererErr.Get("message").String(),
			Stack:   rendererErr.Get("stack").String(),
		}
	}

	markup := parsed.Get("html")
	if markup.Type != gjson.String {
		return render.Result{}, fmt.Errorf("%w: missing html", ErrInvalidResponse)
	}

	result := render.Result{
		HTML: markup.String(),
		Head: parsed.Get("head").String(),
	}

	if isDocument(result.HTML) {
		return c.fromDocument(result.HTML)
	}

	return result, nil
}

// Reload asks the render process to resolve its module again.
func (c *Client) Reload(ctx context.Context) error {
	_, err := c.post(ctx, "/reload", struct{}{})

	return err
}

// Loader returns a render.Loader for the client. With reload set, every call
// first asks the process to reload its module.
func (c *Client) Loader(reload bool) render.Loader {
	return func(ctx context.Context) (render.Func, error) {
		if reload {
			if err := c.Reload(ctx); err != nil {
				return nil, err
			}
		}

		return c.Render, nil
	}
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode renderer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("renderer request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read renderer response: %w", err)
	}

	// Render errors are reported in the body, usually with a 500 status.
	if resp.StatusCode >= http.StatusBadRequest && !gjson.GetBytes(body, "error").Exists() {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrInvalidResponse, path, resp.StatusCode)
	}

	return body, nil
}

func isDocument(markup string) bool {
	head := strings.ToLower(strings.TrimSpace(markup))

	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}

// fromDocument takes the mount element content, title and description out of
// a whole rendered document.
func (c *Client) fromDocument(document string) (render.Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return render.Result{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	mount := doc.Find("#" + c.mountID)
	if mount.Length() == 0 {
		return render.Result{}, fmt.Errorf("%w: #%s", ErrMountNotFound, c.mountID)
	}

	markup, err := mount.First().Html()
	if err != nil {
		return render.Result{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	description, _ := doc.Find(`head meta[name="description"]`).Attr("content")

	return render.Result{
		HTML: markup,
		Meta: render.Meta{
			Title:       strings.TrimSpace(doc.Find("head title").First().Text()),
			Description: description,
		},
	}, nil
}
