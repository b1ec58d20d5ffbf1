// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/KubriakZahoor107/Art-Culture-Fork/server/utils"
)

// validation errors.
var (
	errUnixSocketWithHostPort       = errors.New("unix socket configured - cannot specify Host and Port simultaneously")
	errUnixSocketInvalidPermissions = errors.New("invalid Basic.UnixSocketPermissions value")
	errUnixSocketUserDoesNotExist   = errors.New("user does not exist")
	errUnixSocketGroupDoesNotExist  = errors.New("group does not exist")
	errInvalidRenderProvider        = errors.New("invalid Render.Provider value")
	errRemoteEndpointRequired       = errors.New("Render.Endpoint is required for the remote provider")
	errInvalidRenderTimeout         = errors.New("Render.Timeout must be positive")
	errInvalidMountID               = errors.New("Render.MountID must be a valid element id")
	errInvalidPathPrefix            = errors.New("URL prefix must start and end with '/'")
	errEmptyStateFilepath           = errors.New("filepath for StateFilepath cannot be empty when limiter is enabled")
	errInvalidLimiterWindow         = errors.New("Limiter.Window must be positive")
	errInvalidLimiterMax            = errors.New("Limiter.Max must be positive")
	errInvalidIPv4Prefix            = errors.New("IPv4 prefix must be between 0 and 32")
	errInvalidIPv6Prefix            = errors.New("IPv6 prefix must be between 0 and 128")
	errInvalidLogFormat             = errors.New("Log.Format must be 'console' or 'json'")
)

var (
	fileModeOctalRegexp  = regexp.MustCompile(`^0?[0-7]{3}$`)
	fileModeStringRegexp = regexp.MustCompile(`^(?:[r-][w-][x-]){3}$`)
	digitsRegexp         = regexp.MustCompile(`^[0-9]+$`)
	mountIDRegexp        = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

// validateAndSet validates the server configuration and populates some fields.
func (cfg *ServerConfig) validateAndSet() error {
	if err := cfg.validateListener(); err != nil {
		return err
	}

	if err := cfg.validateRender(); err != nil {
		return err
	}

	if cfg.Development.ViteURL != "" {
		viteURL, err := utils.ParseURL(cfg.Development.ViteURL, "Vite dev server")
		if err != nil {
			return fmt.Errorf("invalid Development.ViteURL: %w", err)
		}

		cfg.Development.ViteURL = strings.TrimSuffix(viteURL.String(), "/")
	}

	switch cfg.Log.Format {
	case "console", "json":
	default:
		return errInvalidLogFormat
	}

	cfg.warnIfUnreachable()

	if !cfg.Limiter.Enabled {
		return nil
	}

	return cfg.validateLimiter()
}

func (cfg *ServerConfig) validateListener() error {
	if cfg.Basic.UnixSocket == "" {
		if cfg.Basic.Host == "" {
			cfg.Basic.Host = "localhost"
			log.Info().
				Str("host", cfg.Basic.Host).
				Msg("Binding to default host")
		}

		if cfg.Basic.Port == "" {
			cfg.Basic.Port = defaultPort
			log.Info().
				Str("port", cfg.Basic.Port).
				Msg("Using default port")
		}

		return nil
	}

	if cfg.Basic.Host != "" || cfg.Basic.Port != "" {
		return errUnixSocketWithHostPort
	}

	switch {
	case cfg.Basic.RawUnixSocketPermissions == "":
		cfg.Basic.UnixSocketPermissions = 0o666
	case fileModeOctalRegexp.MatchString(cfg.Basic.RawUnixSocketPermissions):
		rawModeUint64, _ := strconv.ParseUint(cfg.Basic.RawUnixSocketPermissions, 8, 32)

		cfg.Basic.UnixSocketPermissions = os.FileMode(rawModeUint64)
	case fileModeStringRegexp.MatchString(cfg.Basic.RawUnixSocketPermissions):
		mode := os.FileMode(0)

		for i, c := range cfg.Basic.RawUnixSocketPermissions {
			if c != '-' {
				const highestBit = 8

				mode |= 1 << (highestBit - i)
			}
		}

		cfg.Basic.UnixSocketPermissions = mode
	default:
		return errUnixSocketInvalidPermissions
	}

	if cfg.Basic.UnixSocketUser != "" && !lookupExists(cfg.Basic.UnixSocketUser, user.LookupId, user.Lookup) {
		return errUnixSocketUserDoesNotExist
	}

	if cfg.Basic.UnixSocketGroup != "" && !lookupExists(cfg.Basic.UnixSocketGroup, user.LookupGroupId, user.LookupGroup) {
		return errUnixSocketGroupDoesNotExist
	}

	return nil
}

// lookupExists resolves a numeric id with byID and anything else with byName.
func lookupExists[T any](value string, byID, byName func(string) (T, error)) bool {
	lookup := byName
	if digitsRegexp.MatchString(value) {
		lookup = byID
	}

	_, err := lookup(value)

	return err == nil
}

func (cfg *ServerConfig) validateRender() error {
	switch cfg.Render.Provider {
	case BuiltinProvider:
	case RemoteProvider:
		if cfg.Render.Endpoint == "" {
			return errRemoteEndpointRequired
		}

		if !strings.HasPrefix(cfg.Render.Endpoint, "unix:") {
			if _, err := utils.ParseURL(cfg.Render.Endpoint, "renderer"); err != nil {
				return fmt.Errorf("invalid Render.Endpoint: %w", err)
			}
		}
	default:
		return fmt.Errorf("%w: %q", errInvalidRenderProvider, cfg.Render.Provider)
	}

	if cfg.Render.Timeout <= 0 {
		return errInvalidRenderTimeout
	}

	if !mountIDRegexp.MatchString(cfg.Render.MountID) {
		return fmt.Errorf("%w: %q", errInvalidMountID, cfg.Render.MountID)
	}

	for name, prefix := range map[string]string{
		"Render.APIPrefix":     cfg.Render.APIPrefix,
		"Render.BaseURL":       cfg.Render.BaseURL,
		"Render.AssetsPrefix":  cfg.Render.AssetsPrefix,
		"Render.UploadsPrefix": cfg.Render.UploadsPrefix,
	} {
		if !strings.HasPrefix(prefix, "/") || !strings.HasSuffix(prefix, "/") {
			return fmt.Errorf("%w: %s=%q", errInvalidPathPrefix, name, prefix)
		}
	}

	return nil
}

func (cfg *ServerConfig) validateLimiter() error {
	if cfg.Limiter.StateFilepath == "" {
		return errEmptyStateFilepath
	}

	if cfg.Limiter.Window <= 0 {
		return errInvalidLimiterWindow
	}

	if cfg.Limiter.Max <= 0 {
		return errInvalidLimiterMax
	}

	if cfg.Limiter.IPv4Prefix < 0 || cfg.Limiter.IPv4Prefix > 32 {
		return errInvalidIPv4Prefix
	}

	if cfg.Limiter.IPv6Prefix < 0 || cfg.Limiter.IPv6Prefix > 128 {
		return errInvalidIPv6Prefix
	}

	return nil
}
