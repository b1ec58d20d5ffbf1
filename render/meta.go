// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package render

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"golang.org/x/text/language"
)

// HomeKey is the route key of "/" and the fallback for unknown routes.
const HomeKey = "home"

var (
	// ErrMissingHome is returned when a metadata table has no home record
	// for its default locale.
	ErrMissingHome = errors.New("metadata table has no default home entry")

	// ErrNoLocales is returned when a metadata table declares no locales.
	ErrNoLocales = errors.New("metadata table declares no locales")
)

//go:embed meta.yaml
var defaultMetaTable []byte

// Meta is the head metadata of a page.
type Meta struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Keywords    string `yaml:"keywords,omitempty"`
	Image       string `yaml:"image,omitempty"`
	Type        string `yaml:"type,omitempty"`
	Locale      string `yaml:"-"`

	// URL is the absolute page address, filled in per request.
	URL string `yaml:"-"`
}

// merge returns m with empty fields taken from fallback.
func (m Meta) merge(fallback Meta) Meta {
	pick := func(value, other string) string {
		if value != "" {
			return value
		}

		return other
	}

	return Meta{
		Title:       pick(m.Title, fallback.Title),
		Description: pick(m.Description, fallback.Description),
		Keywords:    pick(m.Keywords, fallback.Keywords),
		Image:       pick(m.Image, fallback.Image),
		Type:        pick(m.Type, fallback.Type),
		Locale:      pick(m.Locale, fallback.Locale),
		URL:         pick(m.URL, fallback.URL),
	}
}

type metaFile struct {
	Locales []string                   `yaml:"locales"`
	Routes  map[string]map[string]Meta `yaml:"routes"`
}

// MetaTable maps route keys to page metadata. It is read-only after load and
// safe for concurrent use.
type MetaTable struct {
	locales []string
	routes  map[string]map[string]Meta
	matcher language.Matcher
}

// LoadMetaTable reads the table at path, or the built-in table when path is empty.
func LoadMetaTable(path string) (*MetaTable, error) {
	if path == "" {
		return ParseMetaTable(defaultMetaTable)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- configured metadata file
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata table %s: %w", path, err)
	}

	return ParseMetaTable(data)
}

// ParseMetaTable parses a YAML metadata table.
func ParseMetaTable(data []byte) (*MetaTable, error) {
	var file metaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse metadata table: %w", err)
	}

	if len(file.Locales) == 0 {
		return nil, ErrNoLocales
	}

	tags := make([]language.Tag, 0, len(file.Locales))

	for _, locale := range file.Locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q in metadata table: %w", locale, err)
		}

		tags = append(tags, tag)
	}

	if _, ok := file.Routes[HomeKey][file.Locales[0]]; !ok {
		return nil, fmt.Errorf("%w (locale %s)", ErrMissingHome, file.Locales[0])
	}

	return &MetaTable{
		locales: file.Locales,
		routes:  file.Routes,
		matcher: language.NewMatcher(tags),
	}, nil
}

// DefaultLocale returns the locale used when nothing better matches.
func (t *MetaTable) DefaultLocale() string {
	return t.locales[0]
}

// MatchLocale picks the table locale that best serves an Accept-Language header.
func (t *MetaTable) MatchLocale(acceptLanguage string) string {
	if acceptLanguage == "" {
		return t.DefaultLocale()
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.DefaultLocale()
	}

	_, index, confidence := t.matcher.Match(tags...)
	if confidence == language.No {
		return t.DefaultLocale()
	}

	return t.locales[index]
}

// Lookup returns the metadata for key in the locale matching acceptLanguage.
//
// Missing translations fall back to the default locale, and unknown keys fall
// back to the home record.
func (t *MetaTable) Lookup(key, acceptLanguage string) Meta {
	locale := t.MatchLocale(acceptLanguage)

	candidates := [...]struct{ key, locale string }{
		{key, locale},
		{key, t.DefaultLocale()},
		{HomeKey, locale},
		{HomeKey, t.DefaultLocale()},
	}

	for _, candidate := range candidates {
		if meta, ok := t.routes[candidate.key][candidate.locale]; ok {
			meta.Locale = candidate.locale

			return meta
		}
	}

	// unreachable: ParseMetaTable guarantees the default home record
	return Meta{Locale: t.DefaultLocale()}
}

// Has reports whether the table has a record for key.
func (t *MetaTable) Has(key string) bool {
	_, ok := t.routes[key]

	return ok
}

// RouteKey derives the metadata key from a URL: "home" for the root,
// otherwise the first path segment. Query string and fragment are ignored.
func RouteKey(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}

	url = strings.Trim(url, "/")
	if url == "" {
		return HomeKey
	}

	segment, _, _ := strings.Cut(url, "/")

	return segment
}
