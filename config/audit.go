// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const logFilePermissions = 0o666

// setupAudit configures the global logger from the Log section.
//
// Development mode always logs at debug level.
func (cfg *ServerConfig) setupAudit() {
	level := zerolog.DebugLevel

	if cfg.Production {
		parsed, err := zerolog.ParseLevel(cfg.Log.Level)
		if err == nil && parsed != zerolog.NoLevel {
			level = parsed
		} else {
			level = zerolog.InfoLevel
		}
	}

	zerolog.SetGlobalLevel(level)

	writers := []io.Writer{}

	for _, output := range cfg.Log.Outputs {
		var w io.Writer

		switch output {
		case "/dev/stdout":
			w = cfg.terminalWriter(os.Stdout)
		case "/dev/stderr":
			w = cfg.terminalWriter(os.Stderr)
		default:
			file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions) // #nosec:G302,G304
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", output, err)

				continue
			}

			w = cfg.terminalWriter(file)
		}

		writers = append(writers, w)
	}

	if len(writers) == 0 {
		writers = append(writers, ConsoleWriter(os.Stderr))
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
}

func (cfg *ServerConfig) terminalWriter(f *os.File) io.Writer {
	if cfg.Log.Format == "json" {
		return f
	}

	return ConsoleWriter(f)
}

// isTerminal returns true if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ConsoleWriter returns a zerolog console writer for f, colored only on a terminal.
func ConsoleWriter(f *os.File) io.Writer {
	noColor := !isTerminal(f)

	w := zerolog.ConsoleWriter{Out: f, NoColor: noColor, TimeFormat: time.DateTime}

	if !noColor {
		w.FormatPrepare = func(m map[string]any) error {
			// pretty print request logs
			if sys, ok := m["sys"]; ok && sys == "http" {
				m["message"] = fmt.Sprintf("[%s] %v %-5s %s", m["destination"], m["status_code"], m["method"], m["url"])
				delete(m, "sys")
				delete(m, "method")
				delete(m, "status_code")
				delete(m, "url")
				delete(m, "destination")
			}

			return nil
		}
	}

	return w
}
