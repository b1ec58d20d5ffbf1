// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package router

import (
	"net/http"
	"net/http/pprof"
	"runtime/trace"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KubriakZahoor107/Art-Culture-Fork/server/app"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/livereload"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/middleware"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/routes"
)

// DefineRoutes sets up all the routes for the application using our custom Router.
func (router *Router) DefineRoutes(a *app.App) {
	cfg := a.Config

	catch := middleware.CatchOptions{
		Verbose:     !cfg.Production,
		SkipLogging: cfg.ShouldSkipServerLogging,
	}

	// Uploaded files are served in both modes.
	router.Handle("GET "+cfg.Render.UploadsPrefix, routes.Static(cfg.Render.UploadsPrefix, cfg.Paths.Uploads))

	if !cfg.Production {
		if a.Vite != nil {
			vite := routes.ViteProxy(a.Vite)

			for _, path := range routes.VitePaths {
				router.Handle(path, vite)
			}
		}

		if a.Reload != nil {
			router.Handle("GET "+livereload.Path, a.Reload)
		}

		registerDebugRoutes(router)
	}

	api := middleware.CatchError(catch, a.API.Serve)

	var pages http.Handler = middleware.CatchError(catch, a.Pipeline.Page)
	if cfg.Production {
		pages = routes.PublicFiles(cfg.Paths.ClientDir, cfg.Render.AssetsPrefix, pages)
	}

	// Everything else is either the API or a page view.
	router.Handle("/", routes.Dispatch(cfg.Render.APIPrefix, api, pages))
}

var flightRecorder = trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: time.Minute})

func registerDebugRoutes(router *Router) {
	if !flightRecorder.Enabled() {
		if err := flightRecorder.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start flight recorder")
		}
	}

	router.HandleFunc("GET /debug/pprof/", pprof.Index)
	router.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	router.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	router.HandleFunc("GET /debug/flight", func(w http.ResponseWriter, r *http.Request) {
		_, _ = flightRecorder.WriteTo(w)
	})
}
