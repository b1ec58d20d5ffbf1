// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package compose merges a render result into the document template.
package compose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/KubriakZahoor107/Art-Culture-Fork/render"
)

var (
	// ErrMissingMount is returned when the template has no mount element.
	ErrMissingMount = errors.New("template has no mount element")

	// ErrDuplicateMount is returned when the mount id is used more than once.
	ErrDuplicateMount = errors.New("template has more than one mount element")

	// ErrInvalidTemplate is returned when the template cannot be parsed.
	ErrInvalidTemplate = errors.New("invalid template")
)

// Options configures a Composer.
type Options struct {
	// MountID is the id of the element that receives the rendered markup.
	MountID string

	// BaseURL prefixes manifest files, normally "/".
	BaseURL string

	// Manifest resolves the client entry script. Nil means no entry script
	// is added, as in development.
	Manifest *Manifest

	// Scripts are extra module scripts appended to the body, such as the
	// Vite client in development.
	Scripts []string

	// InlineScripts are appended to the body as inline scripts.
	InlineScripts []string
}

// Composer builds the final document. It holds no per-request state and is
// safe for concurrent use.
type Composer struct {
	opts Options
}

// New returns a Composer.
func New(opts Options) *Composer {
	if opts.BaseURL == "" {
		opts.BaseURL = "/"
	}

	return &Composer{opts: opts}
}

// CheckTemplate verifies that template has exactly one element with mountID.
func CheckTemplate(template, mountID string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(template))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	_, err = findMount(doc, mountID)

	return err
}

func findMount(doc *goquery.Document, mountID string) (*goquery.Selection, error) {
	mount := doc.Find("#" + mountID)

	switch mount.Length() {
	case 0:
		return nil, fmt.Errorf("%w: #%s", ErrMissingMount, mountID)
	case 1:
		return mount, nil
	default:
		return nil, fmt.Errorf("%w: #%s found %d times", ErrDuplicateMount, mountID, mount.Length())
	}
}

// Compose places result into the template's mount element, applies the page
// metadata, and adds the client scripts. nonce, when not empty, is set on
// the template's scripts and the added client scripts; scripts coming from
// the render result are left without it.
//
// The mount id must remain unique after the rendered markup is inserted.
func (c *Composer) Compose(template string, result render.Result, nonce string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(template))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	mount, err := findMount(doc, c.opts.MountID)
	if err != nil {
		return "", err
	}

	// Only template scripts and the ones added below carry the nonce.
	trusted := doc.Find("script").Not("#" + c.opts.MountID + " script")

	var scripts []*html.Node

	if c.opts.Manifest != nil {
		entry, err := c.opts.Manifest.Entry()
		if err != nil {
			return "", err
		}

		for _, css := range entry.CSS {
			addStylesheet(doc, c.opts.BaseURL+css)
		}

		if src := c.opts.BaseURL + entry.File; !hasScript(doc, src) {
			scripts = append(scripts, moduleScript(src))
		}
	}

	for _, src := range c.opts.Scripts {
		if !hasScript(doc, src) {
			scripts = append(scripts, moduleScript(src))
		}
	}

	for _, source := range c.opts.InlineScripts {
		scripts = append(scripts, inlineScript(source))
	}

	head := ensureHead(doc)

	if result.Head != "" {
		head.AppendHtml(result.Head)
	}

	applyMeta(doc, head, result.Meta)

	body := doc.Find("body").First()
	body.AppendNodes(scripts...)

	mount.SetHtml(result.HTML)

	if _, err := findMount(doc, c.opts.MountID); err != nil {
		return "", fmt.Errorf("rendered markup: %w", err)
	}

	if nonce != "" {
		trusted.SetAttr("nonce", nonce)
		doc.FindNodes(scripts...).SetAttr("nonce", nonce)
	}

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize document: %w", err)
	}

	return out, nil
}

func ensureHead(doc *goquery.Document) *goquery.Selection {
	// The HTML parser always creates <head>, even for templates without one.
	return doc.Find("head").First()
}

func hasScript(doc *goquery.Document, src string) bool {
	found := false

	doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if value, _ := s.Attr("src"); value == src {
			found = true
		}

		return !found
	})

	return found
}

func addStylesheet(doc *goquery.Document, href string) {
	exists := false

	doc.Find(`link[rel="stylesheet"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if value, _ := s.Attr("href"); value == href {
			exists = true
		}

		return !exists
	})

	if exists {
		return
	}

	ensureHead(doc).AppendNodes(newElement(atom.Link,
		html.Attribute{Key: "rel", Val: "stylesheet"},
		html.Attribute{Key: "href", Val: href},
	))
}

func moduleScript(src string) *html.Node {
	return newElement(atom.Script,
		html.Attribute{Key: "type", Val: "module"},
		html.Attribute{Key: "src", Val: src},
	)
}

func inlineScript(source string) *html.Node {
	script := newElement(atom.Script, html.Attribute{Key: "type", Val: "module"})
	script.AppendChild(&html.Node{Type: html.TextNode, Data: source})

	return script
}

func newElement(tag atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: tag,
		Data:     tag.String(),
		Attr:     attrs,
	}
}
