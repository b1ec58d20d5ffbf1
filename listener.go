// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/KubriakZahoor107/Art-Culture-Fork/config"
)

var (
	errChmodSocket = errors.New("failed to change unix socket permissions")
	errChownSocket = errors.New("failed to change unix socket ownership")
)

// chooseListener listens on the configured unix socket, or on host:port.
func chooseListener(ctx context.Context, cfg *config.ServerConfig) (net.Listener, error) {
	if cfg.Basic.UnixSocket != "" {
		unixAddr := cfg.Basic.UnixSocket

		unixListener, err := (&net.ListenConfig{}).Listen(ctx, "unix", unixAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to start Unix socket listener on %v: %w", unixAddr, err)
		}

		if err = setupSocket(cfg); err != nil {
			_ = unixListener.Close()

			return nil, err
		}

		log.Info().
			Str("address", unixAddr).
			Msg("Listening on Unix domain socket")

		return unixListener, nil
	}

	addr := net.JoinHostPort(cfg.Basic.Host, cfg.Basic.Port)

	tcpListener, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start TCP listener on %v: %w", addr, err)
	}

	addr = tcpListener.Addr().String()

	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		_ = tcpListener.Close()

		return nil, fmt.Errorf("failed to parse listener address %q: %w", addr, err)
	}

	log.Info().
		Str("address", addr).
		Str("port", port).
		Str("mode", cfg.ModeName()).
		Str("url", fmt.Sprintf("http://localhost:%v/", port)).
		Msg("Listening on address")

	return tcpListener, nil
}

func setupSocket(cfg *config.ServerConfig) error {
	basic := cfg.Basic

	uid, gid := -1, -1

	var err error

	if basic.UnixSocketUser != "" {
		uid, err = parseUserOrGroupID(basic.UnixSocketUser, "user")
		if err != nil {
			return err
		}
	}

	if basic.UnixSocketGroup != "" {
		gid, err = parseUserOrGroupID(basic.UnixSocketGroup, "group")
		if err != nil {
			return err
		}
	}

	if uid != -1 || gid != -1 {
		if err := os.Chown(basic.UnixSocket, uid, gid); err != nil {
			return fmt.Errorf("%w: %w", errChownSocket, err)
		}
	}

	if err := os.Chmod(basic.UnixSocket, basic.UnixSocketPermissions); err != nil {
		return fmt.Errorf("%w: %w", errChmodSocket, err)
	}

	return nil
}

// parseUserOrGroupID resolves a numeric ID or a user/group name.
func parseUserOrGroupID(value, kind string) (int, error) {
	if id, err := strconv.Atoi(value); err == nil {
		return id, nil
	}

	var idStr string

	if kind == "user" {
		u, err := user.Lookup(value)
		if err != nil {
			return -1, fmt.Errorf("failed to lookup user '%s': %w", value, err)
		}

		idStr = u.Uid
	} else {
		g, err := user.LookupGroup(value)
		if err != nil {
			return -1, fmt.Errorf("failed to lookup group '%s': %w", value, err)
		}

		idStr = g.Gid
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return -1, fmt.Errorf("failed to parse %s ID from looked-up value '%s': %w", kind, value, err)
	}

	return id, nil
}
