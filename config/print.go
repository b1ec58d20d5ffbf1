// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
)

const redactedValue = "[redacted]"

func (cfg *ServerConfig) print() {
	log.Info().
		Str("version", BuildVersion).
		Str("revision", cfg.Build.Revision()).
		Str("mode", cfg.ModeName()).
		Str("instance", cfg.Instance.CacheID).
		Msg("Starting Art & Culture server")

	if err := cfg.WriteYAML(os.Stderr); err != nil {
		log.Error().Err(err).Msg("Failed to marshal config to YAML for printing")
	}
}

// WriteYAML writes the effective configuration to w with secrets redacted.
func (cfg *ServerConfig) WriteYAML(w io.Writer) error {
	printableConfig := *cfg
	printableConfig.Database.URL = redactDatabaseURL(cfg.Database.URL)

	configYAML, err := yaml.MarshalWithOptions(
		printableConfig,
		GetDurationEncoderOption(),
	)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	_, err = fmt.Fprintln(w, string(configYAML))

	return err
}

// redactDatabaseURL keeps the scheme of a connection string and hides the rest.
func redactDatabaseURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return redactedValue
	}

	return parsed.Scheme + "://" + redactedValue
}
