// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package compose

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

var (
	// ErrNoManifestEntry is returned when no manifest record is flagged isEntry.
	ErrNoManifestEntry = errors.New("manifest has no entry chunk")

	// ErrInvalidManifest is returned for manifests that are not a JSON object.
	ErrInvalidManifest = errors.New("invalid manifest")
)

// ManifestEntry is one chunk record of a build manifest.
type ManifestEntry struct {
	Key     string
	File    string
	Src     string
	IsEntry bool
	CSS     []string
}

// Manifest maps source modules to built files. Records keep the order they
// have in the manifest file.
type Manifest struct {
	entries []ManifestEntry
}

// LoadManifest reads the first of paths that exists.
func LoadManifest(paths ...string) (*Manifest, error) {
	var lastErr error

	for _, path := range paths {
		data, err := os.ReadFile(path) // #nosec G304 -- configured build output
		if errors.Is(err, os.ErrNotExist) {
			lastErr = err

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
		}

		manifest, err := ParseManifest(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		log.Info().
			Str("path", path).
			Int("chunks", len(manifest.entries)).
			Msg("Loaded client manifest")

		return manifest, nil
	}

	return nil, fmt.Errorf("failed to read manifest: %w", lastErr)
}

// ParseManifest parses a Vite-style manifest:
//
//	{"index.html": {"file": "assets/main.abc123.js", "isEntry": true, "css": [...]}}
//
// Records without a "file" are ignored.
func ParseManifest(data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidManifest)
	}

	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrInvalidManifest)
	}

	manifest := &Manifest{}

	root.ForEach(func(key, value gjson.Result) bool {
		file := value.Get("file")
		if !value.IsObject() || file.Type != gjson.String || file.String() == "" {
			return true
		}

		entry := ManifestEntry{
			Key:     key.String(),
			File:    file.String(),
			Src:     value.Get("src").String(),
			IsEntry: value.Get("isEntry").Bool(),
		}

		for _, css := range value.Get("css").Array() {
			entry.CSS = append(entry.CSS, css.String())
		}

		manifest.entries = append(manifest.entries, entry)

		return true
	})

	if entries := manifest.entryCount(); entries > 1 {
		log.Warn().
			Int("entries", entries).
			Str("chosen", manifest.mustEntry().Key).
			Msg("Manifest has several entry chunks, using the first one")
	}

	return manifest, nil
}

// Entry returns the client entry chunk: the first record flagged isEntry in
// manifest order.
func (m *Manifest) Entry() (ManifestEntry, error) {
	for _, entry := range m.entries {
		if entry.IsEntry {
			return entry, nil
		}
	}

	return ManifestEntry{}, ErrNoManifestEntry
}

// Entries returns all records in manifest order.
func (m *Manifest) Entries() []ManifestEntry {
	return m.entries
}

func (m *Manifest) entryCount() int {
	count := 0

	for _, entry := range m.entries {
		if entry.IsEntry {
			count++
		}
	}

	return count
}

func (m *Manifest) mustEntry() ManifestEntry {
	entry, _ := m.Entry()

	return entry
}
