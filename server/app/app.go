// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package app assembles the server context: everything the HTTP handlers need,
built once at startup from the configuration and passed explicitly to the
router.
*/
package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/KubriakZahoor107/Art-Culture-Fork/config"
	"github.com/KubriakZahoor107/Art-Culture-Fork/core/database"
	"github.com/KubriakZahoor107/Art-Culture-Fork/render"
	"github.com/KubriakZahoor107/Art-Culture-Fork/render/remote"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/compose"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/livereload"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/middleware/limiter"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/routes"
	"github.com/KubriakZahoor107/Art-Culture-Fork/views"
)

// App is the server context.
type App struct {
	Config *config.ServerConfig
	DB     *database.DB

	Pipeline *routes.Pipeline
	API      *routes.API

	// Limiter is nil when rate limiting is disabled.
	Limiter *limiter.Limiter

	// Reload is nil unless live reload runs (development only).
	Reload  *livereload.Hub
	watcher *livereload.Watcher

	// Vite is the dev server proxied in development, or nil.
	Vite *url.URL
}

// New builds the server context for cfg. In production the template,
// manifest and render module are loaded concurrently and any failure is
// returned, so that the server never starts half configured.
//
// ctx bounds the lifetime of background work such as the file watcher.
func New(ctx context.Context, cfg *config.ServerConfig, db *database.DB) (*App, error) {
	table, err := render.LoadMetaTable(cfg.Paths.Metadata)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     db,
		API: &routes.API{
			Prefix:  cfg.Render.APIPrefix,
			Mode:    cfg.ModeName(),
			Version: config.BuildVersion,
			DB:      db,
		},
	}

	loader := renderLoader(cfg)

	if cfg.Production {
		err = app.setupProduction(ctx, loader, table)
	} else {
		err = app.setupDevelopment(ctx, loader, table)
	}

	if err != nil {
		return nil, err
	}

	if cfg.Limiter.Enabled {
		app.Limiter = limiter.New(limiter.Options{
			Window:           cfg.Limiter.Window,
			Max:              cfg.Limiter.Max,
			PassIPs:          cfg.Limiter.PassIPs,
			BlockIPs:         cfg.Limiter.BlockIPs,
			IPv4Prefix:       cfg.Limiter.IPv4Prefix,
			IPv6Prefix:       cfg.Limiter.IPv6Prefix,
			ExcludedPrefixes: app.unlimitedPrefixes(),
		})

		log.Info().Msg("Limiter enabled, attempting to load state")
		app.Limiter.LoadFile(cfg.Limiter.StateFilepath)
	}

	return app, nil
}

// renderLoader resolves the configured render module.
func renderLoader(cfg *config.ServerConfig) render.Loader {
	if cfg.Render.Provider == config.RemoteProvider {
		// In development the renderer reloads its module before every render.
		return remote.New(cfg.Render.Endpoint, cfg.Render.MountID).Loader(!cfg.Production)
	}

	return views.Loader()
}

func (app *App) setupProduction(ctx context.Context, loader render.Loader, table *render.MetaTable) error {
	cfg := app.Config

	var (
		template *compose.StaticTemplate
		manifest *compose.Manifest
		provider *render.ProdProvider
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		template, err = compose.NewStaticTemplate(cfg.Paths.BuildTemplate, cfg.Render.MountID)

		return err
	})

	g.Go(func() error {
		var err error

		manifest, err = compose.LoadManifest(cfg.Paths.Manifest, filepath.Join(cfg.Paths.ClientDir, ".vite", "manifest.json"))
		if err != nil {
			return err
		}

		// A manifest without an entry could never produce a working page.
		_, err = manifest.Entry()

		return err
	})

	g.Go(func() error {
		var err error

		provider, err = render.NewProdProvider(gctx, loader)

		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load production build: %w", err)
	}

	links, err := routes.PreloadLinks(manifest, cfg.Render.BaseURL)
	if err != nil {
		return err
	}

	app.Pipeline = &routes.Pipeline{
		Bridge:   render.NewBridge(provider, table, cfg.Render.Timeout),
		Template: template,
		Composer: compose.New(compose.Options{
			MountID:  cfg.Render.MountID,
			BaseURL:  cfg.Render.BaseURL,
			Manifest: manifest,
		}),
		Links: links,
	}

	return nil
}

func (app *App) setupDevelopment(ctx context.Context, loader render.Loader, table *render.MetaTable) error {
	cfg := app.Config

	opts := compose.Options{
		MountID: cfg.Render.MountID,
		BaseURL: cfg.Render.BaseURL,
	}

	if cfg.Development.ViteURL != "" {
		vite, err := url.Parse(cfg.Development.ViteURL)
		if err != nil {
			return fmt.Errorf("invalid Vite dev server URL: %w", err)
		}

		app.Vite = vite
		opts.Scripts = append(opts.Scripts, "/@vite/client")
	}

	if cfg.Development.LiveReload {
		app.Reload = livereload.NewHub()

		watcher, err := livereload.NewWatcher(app.Reload, cfg.Development.WatchDirs...)
		if err != nil {
			return err
		}

		app.watcher = watcher
		opts.InlineScripts = append(opts.InlineScripts, livereload.ClientScript)

		go watcher.Run(ctx)
	}

	app.Pipeline = &routes.Pipeline{
		Bridge:   render.NewBridge(render.NewDevProvider(loader), table, cfg.Render.Timeout),
		Template: compose.DiskTemplate{Path: cfg.Paths.Template},
		Composer: compose.New(opts),
	}

	return nil
}

// unlimitedPrefixes are paths the limiter never counts: build assets and
// development tooling.
func (app *App) unlimitedPrefixes() []string {
	prefixes := []string{app.Config.Render.AssetsPrefix}

	if !app.Config.Production {
		prefixes = append(prefixes, livereload.Path)
		prefixes = append(prefixes, routes.VitePaths...)
	}

	return prefixes
}

// Close stops background work and saves the limiter state. It does not
// close the database, which the caller owns.
func (app *App) Close() error {
	var errs []error

	if app.watcher != nil {
		errs = append(errs, app.watcher.Close())
	}

	if app.Limiter != nil {
		if err := app.Limiter.SaveFile(app.Config.Limiter.StateFilepath); err != nil {
			errs = append(errs, fmt.Errorf("failed to save limiter state: %w", err))
		}
	}

	return errors.Join(errs...)
}
