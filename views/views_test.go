// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package views

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KubriakZahoor107/Art-Culture-Fork/render"
)

func TestRenderRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url      string
		contains string
	}{
		{"/", "Платформа для митців"},
		{"/exhibitions", `data-collection="exhibitions"`},
		{"/exhibitions/12", `data-collection="exhibitions"`},
		{"/museums?city=lviv", `data-collection="museums"`},
		{"/login", `action="/api/auth/login"`},
		{"/signup", `action="/api/auth/register"`},
		{"/about", "Про нас"},
		{"/no-such-page", "Сторінку не знайдено"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()

			result, err := Render(context.Background(), tt.url)
			require.NoError(t, err)

			assert.Contains(t, result.HTML, tt.contains)
			require.NoError(t, render.ValidateFragment(result.HTML))
		})
	}
}

func TestRenderMarksActiveNavigation(t *testing.T) {
	t.Parallel()

	result, err := Render(context.Background(), "/artists/5")
	require.NoError(t, err)

	assert.Contains(t, result.HTML, `<a href="/artists" class="nav-link nav-link--active" aria-current="page">Митці</a>`)
	assert.Equal(t, 1, strings.Count(result.HTML, `aria-current="page"`))
}

func TestRenderSearchEscapesQuery(t *testing.T) {
	t.Parallel()

	result, err := Render(context.Background(), "/search?q=%3Cscript%3Ealert(1)%3C%2Fscript%3E")
	require.NoError(t, err)

	assert.NotContains(t, result.HTML, "<script>")
	assert.Contains(t, result.HTML, "&lt;script&gt;")
	require.NoError(t, render.ValidateFragment(result.HTML))
}

func TestRenderIsPureFunctionOfURL(t *testing.T) {
	t.Parallel()

	first, err := Render(context.Background(), "/posts")
	require.NoError(t, err)

	second, err := Render(context.Background(), "/posts")
	require.NoError(t, err)

	other, err := Render(context.Background(), "/products")
	require.NoError(t, err)

	assert.Equal(t, first.HTML, second.HTML)
	assert.NotEqual(t, first.HTML, other.HTML)
}

func TestRoutesHaveMetadata(t *testing.T) {
	t.Parallel()

	table, err := render.LoadMetaTable("")
	require.NoError(t, err)

	for _, key := range Routes() {
		assert.True(t, table.Has(key), "no metadata for route %q", key)
	}
}

func TestLoader(t *testing.T) {
	t.Parallel()

	fn, err := Loader()(context.Background())
	require.NoError(t, err)

	result, err := fn(context.Background(), "/")
	require.NoError(t, err)
	assert.NotEmpty(t, result.HTML)
}

func TestRenderFooterYear(t *testing.T) {
	currentYear = func() int { return 2031 }

	t.Cleanup(func() { currentYear = func() int { return time.Now().Year() } })

	result, err := Render(context.Background(), "/about")
	require.NoError(t, err)

	assert.Contains(t, result.HTML, "<p>© 2024–2031 Мистецтво та культура</p>")
}

func TestRenderAuthForms(t *testing.T) {
	t.Parallel()

	result, err := Render(context.Background(), "/login")
	require.NoError(t, err)

	assert.Contains(t, result.HTML, `<form action="/api/auth/login" method="post" class="auth-form">`)
	assert.Contains(t, result.HTML, `<input type="password" name="password" required>`)
	assert.Contains(t, result.HTML, `<a href="/signup">Створити обліковий запис</a>`)
}
