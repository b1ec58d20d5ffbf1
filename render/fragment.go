// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package render

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// voidElements never have content or an end tag.
var voidElements = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Param:  true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

// documentElements only belong to a whole document, not to a fragment.
var documentElements = map[atom.Atom]bool{
	atom.Html: true,
	atom.Head: true,
	atom.Body: true,
}

// ValidateFragment checks that markup is a sequence of complete elements:
// every start tag is closed in order, and there is no doctype or
// document-level element.
func ValidateFragment(markup string) error {
	tokenizer := html.NewTokenizer(strings.NewReader(markup))

	var open []string

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if err := tokenizer.Err(); !errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: %w", ErrMalformedFragment, err)
			}

			if len(open) > 0 {
				return fmt.Errorf("%w: unclosed <%s>", ErrMalformedFragment, open[len(open)-1])
			}

			return nil
		case html.DoctypeToken:
			return fmt.Errorf("%w: unexpected doctype", ErrMalformedFragment)
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			tag := atom.Lookup(name)

			if documentElements[tag] {
				return fmt.Errorf("%w: unexpected <%s>", ErrMalformedFragment, name)
			}

			if !voidElements[tag] {
				open = append(open, string(name))
			}
		case html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if documentElements[atom.Lookup(name)] {
				return fmt.Errorf("%w: unexpected <%s/>", ErrMalformedFragment, name)
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if voidElements[atom.Lookup(name)] {
				continue
			}

			if len(open) == 0 {
				return fmt.Errorf("%w: stray </%s>", ErrMalformedFragment, name)
			}

			if top := open[len(open)-1]; top != string(name) {
				return fmt.Errorf("%w: </%s> closes <%s>", ErrMalformedFragment, name, top)
			}

			open = open[:len(open)-1]
		case html.TextToken, html.CommentToken:
		}
	}
}
