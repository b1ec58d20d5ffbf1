// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	"github.com/KubriakZahoor107/Art-Culture-Fork/core/idgen"
)

// Possible values for RenderProvider.
const (
	BuiltinProvider RenderProvider = "builtin"
	RemoteProvider  RenderProvider = "remote"
)

// RenderProvider selects the module that produces page markup.
type RenderProvider string

// ServerConfig holds the application configuration.
type ServerConfig struct {
	Build buildInfo `yaml:"-"`

	Basic struct {
		Host                     string      `env:"ARTCULTURE_HOST,overwrite" yaml:"host"`
		Port                     string      `env:"PORT,overwrite"            yaml:"port"`
		UnixSocket               string      `env:"ARTCULTURE_UNIXSOCKET"     yaml:"unixSocket"`
		RawUnixSocketPermissions string      `env:"ARTCULTURE_UNIXSOCKET_PERMISSIONS" yaml:"unixSocketPermissions"`
		UnixSocketPermissions    os.FileMode `yaml:"-"`
		UnixSocketUser           string      `env:"ARTCULTURE_UNIXSOCKET_USER"  yaml:"unixSocketUser"`
		UnixSocketGroup          string      `env:"ARTCULTURE_UNIXSOCKET_GROUP" yaml:"unixSocketGroup"`
	} `yaml:"basic"`

	// Production selects production mode: the render module, template and
	// manifest are loaded once at startup. NODE_ENV=production also enables it.
	Production bool `env:"ARTCULTURE_PRODUCTION,overwrite" yaml:"production"`

	Paths struct {
		Template      string `env:"ARTCULTURE_TEMPLATE,overwrite"       yaml:"template"`
		ClientDir     string `env:"ARTCULTURE_CLIENT_DIR,overwrite"     yaml:"clientDir"`
		BuildTemplate string `env:"ARTCULTURE_BUILD_TEMPLATE,overwrite" yaml:"buildTemplate"`
		Manifest      string `env:"ARTCULTURE_MANIFEST,overwrite"       yaml:"manifest"`
		Uploads       string `env:"ARTCULTURE_UPLOADS_DIR,overwrite"    yaml:"uploads"`
		Metadata      string `env:"ARTCULTURE_METADATA,overwrite"       yaml:"metadata"`
	} `yaml:"paths"`

	Render struct {
		Provider      RenderProvider `env:"ARTCULTURE_RENDER_PROVIDER,overwrite" yaml:"provider"`
		Endpoint      string         `env:"ARTCULTURE_RENDER_ENDPOINT,overwrite" yaml:"endpoint"`
		Timeout       time.Duration  `env:"ARTCULTURE_RENDER_TIMEOUT,overwrite"  yaml:"timeout"`
		APIPrefix     string         `env:"ARTCULTURE_API_PREFIX,overwrite"      yaml:"apiPrefix"`
		MountID       string         `env:"ARTCULTURE_MOUNT_ID,overwrite"        yaml:"mountId"`
		BaseURL       string         `env:"ARTCULTURE_BASE_URL,overwrite"        yaml:"baseUrl"`
		AssetsPrefix  string         `env:"ARTCULTURE_ASSETS_PREFIX,overwrite"   yaml:"assetsPrefix"`
		UploadsPrefix string         `env:"ARTCULTURE_UPLOADS_PREFIX,overwrite"  yaml:"uploadsPrefix"`
	} `yaml:"render"`

	Security struct {
		CSPNonce    bool     `env:"ARTCULTURE_CSP_NONCE,overwrite"    yaml:"cspNonce"`
		CORSOrigins []string `env:"ARTCULTURE_CORS_ORIGINS,overwrite" yaml:"corsOrigins"`
	} `yaml:"security"`

	Limiter struct {
		Enabled       bool          `env:"ARTCULTURE_LIMITER,overwrite"                yaml:"enabled"`
		Window        time.Duration `env:"ARTCULTURE_LIMITER_WINDOW,overwrite"         yaml:"window"`
		Max           int           `env:"ARTCULTURE_LIMITER_MAX,overwrite"            yaml:"max"`
		StateFilepath string        `env:"ARTCULTURE_LIMITER_STATE_FILEPATH,overwrite" yaml:"stateFilepath"`
		PassIPs       []string      `env:"ARTCULTURE_LIMITER_PASS_IPS,overwrite"       yaml:"passList"`
		BlockIPs      []string      `env:"ARTCULTURE_LIMITER_BLOCK_IPS,overwrite"      yaml:"blockList"`
		IPv4Prefix    int           `env:"ARTCULTURE_LIMITER_IPV4_PREFIX,overwrite"    yaml:"ipv4Prefix"`
		IPv6Prefix    int           `env:"ARTCULTURE_LIMITER_IPV6_PREFIX,overwrite"    yaml:"ipv6Prefix"`
	} `yaml:"limiter"`

	Database struct {
		URL string `env:"DATABASE_URL,overwrite" yaml:"url"`
	} `yaml:"database"`

	Development struct {
		ViteURL    string   `env:"ARTCULTURE_VITE_URL,overwrite"    yaml:"viteUrl"`
		LiveReload bool     `env:"ARTCULTURE_LIVE_RELOAD,overwrite" yaml:"liveReload"`
		WatchDirs  []string `env:"ARTCULTURE_WATCH_DIRS,overwrite"  yaml:"watchDirs"`
	} `yaml:"development"`

	Instance struct {
		StartingTime string `yaml:"-"`
		CacheID      string `yaml:"-"`
	} `yaml:"-"`

	Log struct {
		Level   string   `env:"ARTCULTURE_LOG_LEVEL,overwrite"   yaml:"logLevel"`
		Outputs []string `env:"ARTCULTURE_LOG_OUTPUTS,overwrite" yaml:"logOutputs"`
		Format  string   `env:"ARTCULTURE_LOG_FORMAT,overwrite"  yaml:"logFormat"`
	} `yaml:"log"`
}

// LoadConfig loads the configuration from various sources.
//
// configFlagValue is the value of the --config flag; it takes precedence over
// ARTCULTURE_CONFIGFILE and the default locations when non-empty.
func (cfg *ServerConfig) LoadConfig(configFlagValue string) error {
	configFilePath := resolveConfigPath(configFlagValue)

	cfg.SetDefaults()

	cfg.Build.load()

	cfg.Instance.CacheID = idgen.Make()
	cfg.Instance.StartingTime = time.Now().UTC().Format("2006-01-02 15:04")

	if err := cfg.readYAML(configFilePath); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := useDotEnv(); err != nil {
		return fmt.Errorf("error using .env file: %w", err)
	}

	if err := readEnv(cfg); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	// NODE_ENV is what the client build tooling uses, honour it as well.
	if os.Getenv("NODE_ENV") == "production" {
		cfg.Production = true
	}

	if err := cfg.validateAndSet(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	cfg.setupAudit()

	cfg.print()

	return nil
}

// resolveConfigPath determines the config file path with the following precedence:
//  1. Command-line flag (--config)
//  2. Environment variable (ARTCULTURE_CONFIGFILE)
//  3. ./config.yaml, falling back to ./config.yml
func resolveConfigPath(configFlagValue string) string {
	if configFlagValue != "" {
		return configFlagValue
	}

	if envVar := os.Getenv("ARTCULTURE_CONFIGFILE"); envVar != "" {
		return envVar
	}

	configFilePath := "./config.yaml"
	if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
		ymlPath := "./config.yml"
		if _, statErr := os.Stat(ymlPath); statErr == nil {
			configFilePath = ymlPath
		}
	}

	return configFilePath
}

// TemplatePath returns the document template location for the current mode.
func (cfg *ServerConfig) TemplatePath() string {
	if cfg.Production {
		return cfg.Paths.BuildTemplate
	}

	return cfg.Paths.Template
}

// ModeName returns a human-readable name of the operating mode.
func (cfg *ServerConfig) ModeName() string {
	if cfg.Production {
		return "production"
	}

	return "development"
}

// ShouldSkipServerLogging determines if a request should bypass request logging.
func (cfg *ServerConfig) ShouldSkipServerLogging(path string) bool {
	if strings.HasPrefix(path, cfg.Render.AssetsPrefix) {
		return true
	}

	if !cfg.Production {
		for _, prefix := range devSkippedPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
	}

	return false
}

var devSkippedPathPrefixes = []string{"/@vite/", "/@react-refresh", "/src/", "/node_modules/"}

// GetDurationEncoderOption returns a YAML encoder option that marshals
// time.Duration into a human-readable string format (e.g., "30m", "1h").
func GetDurationEncoderOption() yaml.EncodeOption {
	return yaml.CustomMarshaler[time.Duration](
		func(d time.Duration) ([]byte, error) {
			return yaml.Marshal(d.String())
		},
	)
}

// isContainerized checks for common indicators of a containerized environment.
//
// This is a heuristic and may not be 100% accurate.
func isContainerized() bool {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	if _, err := os.Stat("/.containerenv"); err == nil {
		return true
	}

	// #nosec G304 -- well-known system file, read for heuristics only.
	cgroup, err := os.ReadFile("/proc/self/cgroup")
	if err == nil {
		content := string(cgroup)

		return strings.Contains(content, "docker") ||
			strings.Contains(content, "kubepods") ||
			strings.Contains(content, "containerd") ||
			strings.Contains(content, "lxc") ||
			strings.Contains(content, "crio")
	}

	return false
}

// warnIfUnreachable logs when the server is unlikely to be reachable from
// outside a container.
func (cfg *ServerConfig) warnIfUnreachable() {
	if cfg.Basic.UnixSocket != "" {
		return
	}

	if isContainerized() && cfg.Basic.Host != "0.0.0.0" && cfg.Basic.Host != "::" {
		log.Warn().
			Str("host", cfg.Basic.Host).
			Msg("Running in a containerized environment but host is not a wildcard address (e.g., '0.0.0.0' or '::'). This may prevent the service from being accessible outside the container.")
	}
}
