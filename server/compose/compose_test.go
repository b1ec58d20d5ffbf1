// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package compose

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KubriakZahoor107/Art-Culture-Fork/render"
)

const testTemplate = `<!DOCTYPE html>
<html lang="uk">
  <head>
    <meta charset="UTF-8">
    <link rel="icon" type="image/png" sizes="32x32" href="/favicon-32x32.png">
    <link rel="manifest" href="/site.webmanifest">
    <title>Art</title>
  </head>
  <body>
    <div id="root"></div>
  </body>
</html>`

const testManifest = `{
  "src/main.jsx": {"file": "assets/main.abc123.js", "src": "src/main.jsx", "isEntry": true, "css": ["assets/main.def456.css"]},
  "src/lazy.jsx": {"file": "assets/lazy.789.js", "isDynamicEntry": true}
}`

func parse(t *testing.T, document string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	require.NoError(t, err)

	return doc
}

func mustManifest(t *testing.T, data string) *Manifest {
	t.Helper()

	manifest, err := ParseManifest([]byte(data))
	require.NoError(t, err)

	return manifest
}

func TestComposeInsertsFragmentOnce(t *testing.T) {
	t.Parallel()

	composer := New(Options{MountID: "root"})

	out, err := composer.Compose(testTemplate, render.Result{HTML: `<main class="page">Виставки</main>`}, "")
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, 1, doc.Find("#root").Length())
	assert.Equal(t, 1, doc.Find("#root > main.page").Length())
	assert.Equal(t, 1, strings.Count(out, "Виставки"))

	// surrounding structure is preserved
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Equal(t, 1, doc.Find(`link[rel="icon"][href="/favicon-32x32.png"]`).Length())
	assert.Equal(t, 1, doc.Find(`link[rel="manifest"]`).Length())
	assert.Equal(t, "uk", doc.Find("html").AttrOr("lang", ""))
	assert.Equal(t, 0, doc.Find("script").Length())
}

func TestComposeProductionEntryScript(t *testing.T) {
	t.Parallel()

	composer := New(Options{MountID: "root", BaseURL: "/", Manifest: mustManifest(t, testManifest)})

	out, err := composer.Compose(testTemplate, render.Result{HTML: "<p>x</p>"}, "n0nce")
	require.NoError(t, err)

	doc := parse(t, out)

	script := doc.Find(`body > script[type="module"]`)
	require.Equal(t, 1, script.Length())
	assert.Equal(t, "/assets/main.abc123.js", script.AttrOr("src", ""))
	assert.Equal(t, "n0nce", script.AttrOr("nonce", ""))

	assert.Equal(t, 1, doc.Find(`head link[rel="stylesheet"][href="/assets/main.def456.css"]`).Length())
}

func TestComposeDoesNotDuplicateTemplateScript(t *testing.T) {
	t.Parallel()

	template := strings.Replace(testTemplate, "</body>",
		`<script type="module" crossorigin src="/assets/main.abc123.js"></script></body>`, 1)

	composer := New(Options{MountID: "root", Manifest: mustManifest(t, testManifest)})

	out, err := composer.Compose(template, render.Result{HTML: "<p>x</p>"}, "abc")
	require.NoError(t, err)

	doc := parse(t, out)
	scripts := doc.Find(`script[src="/assets/main.abc123.js"]`)
	require.Equal(t, 1, scripts.Length())
	assert.Equal(t, "abc", scripts.AttrOr("nonce", ""))
}

func TestComposeDevelopmentScripts(t *testing.T) {
	t.Parallel()

	composer := New(Options{
		MountID:       "root",
		Scripts:       []string{"/@vite/client", "/src/entry-client.jsx"},
		InlineScripts: []string{`new EventSource("/__livereload")`},
	})

	out, err := composer.Compose(testTemplate, render.Result{HTML: "<p>x</p>"}, "dev")
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, 1, doc.Find(`script[src="/@vite/client"]`).Length())
	assert.Equal(t, 1, doc.Find(`script[src="/src/entry-client.jsx"]`).Length())
	assert.Contains(t, out, `new EventSource("/__livereload")`)
	assert.Equal(t, 3, doc.Find(`script[nonce="dev"]`).Length())
}

func TestComposeNonceSkipsRenderedScripts(t *testing.T) {
	t.Parallel()

	composer := New(Options{MountID: "root", Manifest: mustManifest(t, testManifest)})

	out, err := composer.Compose(testTemplate, render.Result{HTML: `<div><script>evil()</script></div>`}, "abc")
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Empty(t, doc.Find("#root script").AttrOr("nonce", ""))
	assert.Equal(t, "abc", doc.Find("body > script").AttrOr("nonce", ""))
}

func TestComposeNonceSkipsRenderedHeadScripts(t *testing.T) {
	t.Parallel()

	composer := New(Options{MountID: "root", Manifest: mustManifest(t, testManifest)})

	out, err := composer.Compose(testTemplate, render.Result{
		HTML: "<p>x</p>",
		Head: `<script src="/analytics.js"></script>`,
	}, "abc")
	require.NoError(t, err)

	doc := parse(t, out)
	require.Equal(t, 1, doc.Find(`head script[src="/analytics.js"]`).Length())
	assert.Empty(t, doc.Find(`head script[src="/analytics.js"]`).AttrOr("nonce", ""))
	assert.Equal(t, "abc", doc.Find(`script[src="/assets/main.abc123.js"]`).AttrOr("nonce", ""))
}

func TestComposeRejectsMountInRenderedMarkup(t *testing.T) {
	t.Parallel()

	composer := New(Options{MountID: "root"})

	tests := []struct {
		name   string
		result render.Result
	}{
		{"fragment", render.Result{HTML: `<div id="root"><main>x</main></div>`}},
		{"head", render.Result{HTML: "<p>x</p>", Head: `<meta id="root">`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := composer.Compose(testTemplate, tt.result, "")
			require.ErrorIs(t, err, ErrDuplicateMount)
		})
	}
}

func TestComposeMeta(t *testing.T) {
	t.Parallel()

	composer := New(Options{MountID: "root"})

	meta := render.Meta{
		Title:       "Виставки | Мистецтво та культура",
		Description: `Опис з "лапками" <b>`,
		Image:       "/images/og.jpg",
		Locale:      "en",
	}

	out, err := composer.Compose(testTemplate, render.Result{
		HTML: "<p>x</p>",
		Head: `<link rel="preload" href="/fonts/a.woff2" as="font">`,
		Meta: meta,
	}, "")
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, meta.Title, doc.Find("head title").Text())
	assert.Equal(t, 1, doc.Find("head title").Length())
	assert.Equal(t, meta.Description, doc.Find(`meta[name="description"]`).AttrOr("content", ""))
	assert.Equal(t, meta.Title, doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	assert.Equal(t, "/images/og.jpg", doc.Find(`meta[property="og:image"]`).AttrOr("content", ""))
	assert.Equal(t, 0, doc.Find(`meta[name="keywords"]`).Length())
	assert.Equal(t, "en", doc.Find("html").AttrOr("lang", ""))
	assert.Equal(t, 1, doc.Find(`head link[rel="preload"]`).Length())
	assert.NotContains(t, out, "<b>")
}

func TestComposeCanonicalURL(t *testing.T) {
	t.Parallel()

	composer := New(Options{MountID: "root"})
	template := `<html><head><link rel="canonical" href="/old"></head><body><div id="root"></div></body></html>`

	out, err := composer.Compose(template, render.Result{
		HTML: "<p>x</p>",
		Meta: render.Meta{URL: "https://art.example/posts?page=2"},
	}, "")
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, 1, doc.Find(`link[rel="canonical"]`).Length())
	assert.Equal(t, "https://art.example/posts?page=2", doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))
	assert.Equal(t, "https://art.example/posts?page=2", doc.Find(`meta[property="og:url"]`).AttrOr("content", ""))
}

func TestComposeTemplateErrors(t *testing.T) {
	t.Parallel()

	composer := New(Options{MountID: "root"})

	_, err := composer.Compose(`<html><body><div id="app"></div></body></html>`, render.Result{HTML: "<p/>"}, "")
	require.ErrorIs(t, err, ErrMissingMount)

	_, err = composer.Compose(`<html><body><div id="root"></div><div id="root"></div></body></html>`, render.Result{HTML: "<p/>"}, "")
	require.ErrorIs(t, err, ErrDuplicateMount)

	withManifest := New(Options{MountID: "root", Manifest: mustManifest(t, `{"a.js": {"file": "a.js"}}`)})
	_, err = withManifest.Compose(testTemplate, render.Result{HTML: "<p/>"}, "")
	require.ErrorIs(t, err, ErrNoManifestEntry)
}

func TestComposeIsDeterministic(t *testing.T) {
	t.Parallel()

	composer := New(Options{MountID: "root", Manifest: mustManifest(t, testManifest)})
	result := render.Result{HTML: "<p>x</p>", Meta: render.Meta{Title: "t", Description: "d"}}

	first, err := composer.Compose(testTemplate, result, "n")
	require.NoError(t, err)

	second, err := composer.Compose(testTemplate, result, "n")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestManifestEntry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		manifest string
		wantFile string
		wantErr  error
	}{
		{
			name:     "Single entry",
			manifest: testManifest,
			wantFile: "assets/main.abc123.js",
		},
		{
			name: "First entry wins",
			manifest: `{
				"z.html": {"file": "assets/z.js", "isEntry": true},
				"a.html": {"file": "assets/a.js", "isEntry": true}
			}`,
			wantFile: "assets/z.js",
		},
		{
			name:     "Entry without file is skipped",
			manifest: `{"a": {"isEntry": true}, "b": {"file": "assets/b.js", "isEntry": true}}`,
			wantFile: "assets/b.js",
		},
		{
			name:     "No entry",
			manifest: `{"a": {"file": "assets/a.js"}}`,
			wantErr:  ErrNoManifestEntry,
		},
		{
			name:     "Empty manifest",
			manifest: `{}`,
			wantErr:  ErrNoManifestEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entry, err := mustManifest(t, tt.manifest).Entry()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantFile, entry.File)
		})
	}
}

func TestParseManifestInvalid(t *testing.T) {
	t.Parallel()

	for _, data := range []string{"", "not json", "[1,2]", `"string"`} {
		_, err := ParseManifest([]byte(data))
		require.ErrorIs(t, err, ErrInvalidManifest, "input %q", data)
	}
}

func TestLoadManifestFallback(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fallback := filepath.Join(dir, ".vite", "manifest.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(fallback), 0o755))
	require.NoError(t, os.WriteFile(fallback, []byte(testManifest), 0o600))

	manifest, err := LoadManifest(filepath.Join(dir, "manifest.json"), fallback)
	require.NoError(t, err)
	assert.Len(t, manifest.Entries(), 2)

	_, err = LoadManifest(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestTemplates(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(path, []byte(testTemplate), 0o600))

	static, err := NewStaticTemplate(path, "root")
	require.NoError(t, err)

	disk := DiskTemplate{Path: path}

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o600))

	fromStatic, err := static.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testTemplate, fromStatic)

	fromDisk, err := disk.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "changed", fromDisk)

	_, err = NewStaticTemplate(path, "root")
	require.ErrorIs(t, err, ErrMissingMount)

	_, err = DiskTemplate{Path: filepath.Join(t.TempDir(), "none.html")}.Load(context.Background())
	require.ErrorIs(t, err, os.ErrNotExist)
}
