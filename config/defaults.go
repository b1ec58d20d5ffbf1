// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import "time"

const (
	defaultPort = "3000"

	defaultRenderTimeout = 10 * time.Second

	// The client was historically limited to 100 requests per 15 minutes.
	defaultLimiterWindow = 15 * time.Minute
	defaultLimiterMax    = 100
)

// SetDefaults populates the configuration with default values.
func (cfg *ServerConfig) SetDefaults() {
	// Host and Port are filled in by validateListener unless a unix socket is used.
	cfg.Basic.Host = ""
	cfg.Basic.Port = ""

	cfg.Production = false

	cfg.Paths.Template = "index.html"
	cfg.Paths.ClientDir = "dist/client"
	cfg.Paths.BuildTemplate = "dist/client/index.html"
	cfg.Paths.Manifest = "dist/client/manifest.json"
	cfg.Paths.Uploads = "uploads"
	cfg.Paths.Metadata = ""

	cfg.Render.Provider = BuiltinProvider
	cfg.Render.Endpoint = ""
	cfg.Render.Timeout = defaultRenderTimeout
	cfg.Render.APIPrefix = "/api/"
	cfg.Render.MountID = "root"
	cfg.Render.BaseURL = "/"
	cfg.Render.AssetsPrefix = "/assets/"
	cfg.Render.UploadsPrefix = "/uploads/"

	cfg.Security.CSPNonce = true
	cfg.Security.CORSOrigins = nil

	cfg.Limiter.Enabled = true
	cfg.Limiter.Window = defaultLimiterWindow
	cfg.Limiter.Max = defaultLimiterMax
	cfg.Limiter.StateFilepath = "./data/limiter_state.json"
	cfg.Limiter.IPv4Prefix = 24
	cfg.Limiter.IPv6Prefix = 48

	cfg.Database.URL = ""

	cfg.Development.ViteURL = ""
	cfg.Development.LiveReload = true
	cfg.Development.WatchDirs = []string{"src", "views"}

	cfg.Log.Level = "info"
	cfg.Log.Outputs = []string{"/dev/stderr"}
	cfg.Log.Format = "console"
}
