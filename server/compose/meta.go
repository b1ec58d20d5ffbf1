// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package compose

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/KubriakZahoor107/Art-Culture-Fork/render"
)

// applyMeta writes meta into the document head, replacing values the
// template already has and creating missing tags.
func applyMeta(doc *goquery.Document, head *goquery.Selection, meta render.Meta) {
	if meta.Locale != "" {
		doc.Find("html").First().SetAttr("lang", meta.Locale)
	}

	if meta.Title != "" {
		title := head.Find("title")
		if title.Length() == 0 {
			head.AppendNodes(newElement(atom.Title))
			title = head.Find("title")
		}

		title.First().SetText(meta.Title)
	}

	setMeta(head, "name", "description", meta.Description)
	setMeta(head, "name", "keywords", meta.Keywords)
	setMeta(head, "property", "og:title", meta.Title)
	setMeta(head, "property", "og:description", meta.Description)
	setMeta(head, "property", "og:image", meta.Image)
	setMeta(head, "property", "og:type", meta.Type)
	setMeta(head, "property", "og:locale", meta.Locale)
	setMeta(head, "property", "og:url", meta.URL)
	setCanonical(head, meta.URL)
}

func setCanonical(head *goquery.Selection, href string) {
	if href == "" {
		return
	}

	if link := head.Find(`link[rel="canonical"]`); link.Length() > 0 {
		link.First().SetAttr("href", href)

		return
	}

	head.AppendNodes(newElement(atom.Link,
		html.Attribute{Key: "rel", Val: "canonical"},
		html.Attribute{Key: "href", Val: href},
	))
}

// setMeta sets <meta {attr}="{name}" content="{content}">; an empty content
// leaves the head untouched.
func setMeta(head *goquery.Selection, attr, name, content string) {
	if content == "" {
		return
	}

	existing := head.Find("meta").FilterFunction(func(_ int, s *goquery.Selection) bool {
		value, ok := s.Attr(attr)

		return ok && value == name
	})

	if existing.Length() > 0 {
		existing.First().SetAttr("content", content)

		return
	}

	head.AppendNodes(newElement(atom.Meta,
		html.Attribute{Key: attr, Val: name},
		html.Attribute{Key: "content", Val: content},
	))
}
