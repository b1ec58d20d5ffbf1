// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile stores content in a temporary config.yaml and returns its path.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// TestLoadConfig covers the main layering behaviour; it cannot run in
// parallel because it sets environment variables.
func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr error
		check   func(t *testing.T, cfg *ServerConfig)
	}{
		{
			name: "Defaults",
			check: func(t *testing.T, cfg *ServerConfig) {
				t.Helper()
				assert.Equal(t, "localhost", cfg.Basic.Host)
				assert.Equal(t, "3000", cfg.Basic.Port)
				assert.False(t, cfg.Production)
				assert.Equal(t, "index.html", cfg.TemplatePath())
				assert.Equal(t, "/api/", cfg.Render.APIPrefix)
				assert.Equal(t, "root", cfg.Render.MountID)
				assert.Equal(t, 10*time.Second, cfg.Render.Timeout)
				assert.Equal(t, 15*time.Minute, cfg.Limiter.Window)
				assert.Equal(t, 100, cfg.Limiter.Max)
			},
		},
		{
			name: "YAML file is applied",
			yaml: "basic:\n  port: \"8080\"\nrender:\n  mountId: app\n  timeout: 2s\n",
			check: func(t *testing.T, cfg *ServerConfig) {
				t.Helper()
				assert.Equal(t, "8080", cfg.Basic.Port)
				assert.Equal(t, "app", cfg.Render.MountID)
				assert.Equal(t, 2*time.Second, cfg.Render.Timeout)
			},
		},
		{
			name: "Environment overrides YAML",
			yaml: "basic:\n  port: \"8080\"\n",
			env: map[string]string{
				"PORT":                   "9090",
				"ARTCULTURE_CORS_ORIGINS": "https://a.example, https://b.example",
			},
			check: func(t *testing.T, cfg *ServerConfig) {
				t.Helper()
				assert.Equal(t, "9090", cfg.Basic.Port)
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSOrigins)
			},
		},
		{
			name: "NODE_ENV selects production",
			env:  map[string]string{"NODE_ENV": "production"},
			check: func(t *testing.T, cfg *ServerConfig) {
				t.Helper()
				assert.True(t, cfg.Production)
				assert.Equal(t, "dist/client/index.html", cfg.TemplatePath())
				assert.Equal(t, "production", cfg.ModeName())
			},
		},
		{
			name:    "Remote provider without endpoint",
			env:     map[string]string{"ARTCULTURE_RENDER_PROVIDER": "remote"},
			wantErr: errRemoteEndpointRequired,
		},
		{
			name:    "Unknown provider",
			env:     map[string]string{"ARTCULTURE_RENDER_PROVIDER": "webpack"},
			wantErr: errInvalidRenderProvider,
		},
		{
			name:    "Invalid mount id",
			env:     map[string]string{"ARTCULTURE_MOUNT_ID": "#root"},
			wantErr: errInvalidMountID,
		},
		{
			name:    "API prefix without slashes",
			env:     map[string]string{"ARTCULTURE_API_PREFIX": "api"},
			wantErr: errInvalidPathPrefix,
		},
		{
			name:    "Unix socket with host",
			env:     map[string]string{"ARTCULTURE_UNIXSOCKET": "/tmp/art.sock", "ARTCULTURE_HOST": "0.0.0.0"},
			wantErr: errUnixSocketWithHostPort,
		},
		{
			name:    "Invalid IPv4 prefix",
			env:     map[string]string{"ARTCULTURE_LIMITER_IPV4_PREFIX": "40"},
			wantErr: errInvalidIPv4Prefix,
		},
		{
			name: "Limiter disabled skips limiter validation",
			env: map[string]string{
				"ARTCULTURE_LIMITER":             "false",
				"ARTCULTURE_LIMITER_IPV4_PREFIX": "40",
			},
			check: func(t *testing.T, cfg *ServerConfig) {
				t.Helper()
				assert.False(t, cfg.Limiter.Enabled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.yaml != "" {
				path = writeConfigFile(t, tt.yaml)
			}

			cfg := &ServerConfig{}
			err := cfg.LoadConfig(path)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("ARTCULTURE_CONFIGFILE", "/etc/artculture.yaml")

	assert.Equal(t, "/from/flag.yaml", resolveConfigPath("/from/flag.yaml"))
	assert.Equal(t, "/etc/artculture.yaml", resolveConfigPath(""))
}

func TestWriteYAMLRedactsDatabaseURL(t *testing.T) {
	t.Parallel()

	cfg := &ServerConfig{}
	cfg.SetDefaults()
	cfg.Database.URL = "postgres://user:secret@db:5432/art"

	var buf bytes.Buffer
	require.NoError(t, cfg.WriteYAML(&buf))

	assert.NotContains(t, buf.String(), "secret")
	assert.Contains(t, buf.String(), "postgres://"+redactedValue)
	assert.Contains(t, buf.String(), "10s")
}

func TestReadEnvKeepsValueWithoutOverwrite(t *testing.T) {
	t.Setenv("ARTCULTURE_UNIXSOCKET", "/tmp/new.sock")

	cfg := &ServerConfig{}
	cfg.Basic.UnixSocket = "/tmp/old.sock"

	require.NoError(t, readEnv(cfg))
	assert.Equal(t, "/tmp/old.sock", cfg.Basic.UnixSocket)
}
