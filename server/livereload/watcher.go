// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package livereload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounce groups the bursts of events editors and bundlers produce into
// one reload.
const debounce = 150 * time.Millisecond

// Watcher notifies a Hub when files below its directories change.
type Watcher struct {
	watcher *fsnotify.Watcher
	hub     *Hub
}

// NewWatcher watches dirs and their subdirectories. Directories that do not
// exist are skipped.
func NewWatcher(hub *Hub, dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	watcher := &Watcher{watcher: w, hub: hub}

	for _, dir := range dirs {
		if err := watcher.addTree(dir); err != nil {
			_ = w.Close()

			return nil, err
		}
	}

	return watcher, nil
}

// addTree watches dir and every directory below it.
func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != dir && isIgnored(d.Name()) {
			return filepath.SkipDir
		}

		return w.watcher.Add(path)
	})

	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("dir", dir).Msg("Live reload directory does not exist, skipping")

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	log.Info().Str("dir", dir).Msg("Watching for changes")

	return nil
}

// isIgnored reports directories that never trigger reloads.
func isIgnored(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules" || name == "dist"
}

// Run forwards file changes to the hub until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	timer := time.NewTimer(debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						log.Warn().Err(err).Msg("Failed to watch new directory")
					}
				}
			}

			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("File changed")

			timer.Reset(debounce)

		case <-timer.C:
			w.hub.Notify()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			log.Warn().Err(err).Msg("File watcher error")
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
