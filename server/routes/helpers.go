// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"fmt"

	"github.com/KubriakZahoor107/Art-Culture-Fork/server/compose"
)

// makeModulePreloadLink returns a Link header value to preload a module script.
func makeModulePreloadLink(url string) string {
	return fmt.Sprintf("<%s>; rel=\"modulepreload\"; fetchpriority=\"high\"", url)
}

// makePreloadStyleLink returns a Link header value to preload a stylesheet.
func makePreloadStyleLink(url string) string {
	return fmt.Sprintf("<%s>; rel=\"preload\"; as=\"style\"", url)
}

// PreloadLinks returns the Link header values preloading the client entry
// and its stylesheets, so browsers can fetch them while parsing the page.
func PreloadLinks(manifest *compose.Manifest, baseURL string) ([]string, error) {
	entry, err := manifest.Entry()
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, len(entry.CSS)+1)
	links = append(links, makeModulePreloadLink(baseURL+entry.File))

	for _, css := range entry.CSS {
		links = append(links, makePreloadStyleLink(baseURL+css))
	}

	return links, nil
}
