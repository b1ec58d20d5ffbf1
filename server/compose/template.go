// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package compose

import (
	"context"
	"fmt"
	"os"
)

// TemplateSource provides the document template.
type TemplateSource interface {
	Load(ctx context.Context) (string, error)
}

// DiskTemplate reads the template file on every Load so edits show up on the
// next request.
type DiskTemplate struct {
	Path string
}

// Load reads the template file.
func (t DiskTemplate) Load(context.Context) (string, error) {
	data, err := os.ReadFile(t.Path) // #nosec G304 -- configured template path
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", t.Path, err)
	}

	return string(data), nil
}

// StaticTemplate holds a template read once.
type StaticTemplate struct {
	html string
}

// NewStaticTemplate reads the template at path and checks it has exactly one
// mount element.
func NewStaticTemplate(path, mountID string) (*StaticTemplate, error) {
	html, err := DiskTemplate{Path: path}.Load(context.Background())
	if err != nil {
		return nil, err
	}

	if err := CheckTemplate(html, mountID); err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}

	return &StaticTemplate{html: html}, nil
}

// Load returns the template read at construction.
func (t *StaticTemplate) Load(context.Context) (string, error) {
	return t.html, nil
}
