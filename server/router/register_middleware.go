// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"github.com/KubriakZahoor107/Art-Culture-Fork/config"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/app"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/middleware"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/middleware/set_request_context"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/utils"
)

func (router *Router) RegisterMiddleware(a *app.App) error {
	cfg := a.Config

	// the first middleware is the most outer / first executed one
	router.Use(middleware.WithServerTiming)

	// The dev server's websocket needs an unwrapped connection.
	if cfg.Production {
		compress, err := middleware.Compress()
		if err != nil {
			return err
		}

		router.Use(compress)
	}

	router.Use(set_request_context.WithRequestContext(cfg.Security.CSPNonce)) // needed for everything else
	router.Use(middleware.SetResponseHeaders(middleware.HeaderOptions{
		Development:   !cfg.Production,
		DevOrigins:    devOrigins(a),
		AssetsPrefix:  cfg.Render.AssetsPrefix,
		UploadsPrefix: cfg.Render.UploadsPrefix,
		Version:       config.BuildVersion,
		Revision:      cfg.Build.Revision(),
	}))
	router.Use(middleware.CORS(cfg.Security.CORSOrigins))

	// Rejected requests never reach the routes.
	if a.Limiter != nil {
		router.Use(a.Limiter.Evaluate)
	}

	return nil
}

func devOrigins(a *app.App) []string {
	if a.Vite == nil {
		return nil
	}

	return []string{utils.GetOriginFromURL(*a.Vite)}
}
