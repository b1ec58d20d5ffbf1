// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Art & Culture server renders the Art & Culture single-page application on the
server and forwards API traffic to the feature routes.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/KubriakZahoor107/Art-Culture-Fork/config"
	"github.com/KubriakZahoor107/Art-Culture-Fork/core/audit"
	"github.com/KubriakZahoor107/Art-Culture-Fork/core/database"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/app"
	"github.com/KubriakZahoor107/Art-Culture-Fork/server/router"
)

const (
	// Values for http.Server timeouts.
	// ref: gosec: G112
	readHeaderTimeout time.Duration = 15 * time.Second
	readTimeout       time.Duration = 15 * time.Second
	writeTimeout      time.Duration = 30 * time.Second
	idleTimeout       time.Duration = 30 * time.Second

	serverShutdownDeadline time.Duration = 5 * time.Second
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:           "artculture",
	Short:         "Server-side rendering for the Art & Culture application",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		var cfg config.ServerConfig

		if err := cfg.LoadConfig(configFlag); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		return cfg.WriteYAML(cmd.OutOrStdout())
	},
}

//nolint:gochecknoinits // cobra command registration
func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to the YAML configuration file")
	rootCmd.AddCommand(serveCmd, configCmd)
}

// main is the entry point of the application.
func main() {
	audit.SetDefaultLogger()

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Application failed")
	}
}

// run orchestrates the application startup and graceful shutdown.
//
//nolint:funlen
func run(ctx context.Context) error {
	var cfg config.ServerConfig

	if err := cfg.LoadConfig(configFlag); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.Open(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// The database is released on every exit path, including panics.
	defer func() {
		if r := recover(); r != nil {
			closeDatabase(db)

			panic(r)
		}
	}()

	appCtx, stopApp := context.WithCancel(ctx)
	defer stopApp()

	application, err := app.New(appCtx, &cfg, db)
	if err != nil {
		closeDatabase(db)

		return fmt.Errorf("failed to initialize application: %w", err)
	}

	r, err := router.New(application)
	if err != nil {
		closeDatabase(db)

		return fmt.Errorf("failed to build router: %w", err)
	}

	// Create http.Server instance
	server := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	// Channel to listen for server errors
	serverErrors := make(chan error, 1)

	go func() {
		listener, err := chooseListener(ctx, &cfg)
		if err != nil {
			serverErrors <- fmt.Errorf("failed to create listener: %w", err)

			return
		}

		serverErrors <- server.Serve(listener)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	defer signal.Stop(quit)

	// Block until a shutdown signal or a server error is received
	select {
	case err := <-serverErrors:
		stopApp()

		if closeErr := application.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to release application resources")
		}

		closeDatabase(db)

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case s := <-quit:
		log.Info().Str("signal", s.String()).Msg("Shutdown signal received")
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownDeadline)
		defer cancel()

		shutdownErr := server.Shutdown(shutdownCtx)

		stopApp()

		if err := application.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to release application resources")
		}

		closeDatabase(db)

		if shutdownErr != nil {
			return fmt.Errorf("server forced to shutdown: %w", shutdownErr)
		}
	}

	log.Info().Msg("Server exited gracefully")

	return nil
}

func closeDatabase(db *database.DB) {
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close database connection")
	}
}
