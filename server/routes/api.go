// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/KubriakZahoor107/Art-Culture-Fork/core/database"
)

const healthPingTimeout = 2 * time.Second

// Database connection states reported by the health endpoint.
const (
	databaseConnected   = "connected"
	databaseDisabled    = "disabled"
	databaseUnreachable = "unreachable"
)

type healthData struct {
	Status   string `json:"status"`
	Mode     string `json:"mode"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// API answers requests below the API prefix. Feature routes are served
// elsewhere; only the health endpoint lives here.
type API struct {
	Prefix  string
	Mode    string
	Version string
	DB      *database.DB
}

// Serve is the handler for the API prefix.
func (a *API) Serve(w http.ResponseWriter, r *http.Request) error {
	endpoint := strings.TrimPrefix(r.URL.Path, a.Prefix)

	switch {
	case endpoint == "health" && (r.Method == http.MethodGet || r.Method == http.MethodHead):
		return a.health(w, r)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})

		return nil
	}
}

func (a *API) health(w http.ResponseWriter, r *http.Request) error {
	data := healthData{
		Status:   "ok",
		Mode:     a.Mode,
		Version:  a.Version,
		Database: databaseDisabled,
	}

	statusCode := http.StatusOK

	if a.DB.Enabled() {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := a.DB.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("Health check failed to reach the database")

			data.Status = "degraded"
			data.Database = databaseUnreachable
			statusCode = http.StatusServiceUnavailable
		} else {
			data.Database = databaseConnected
		}
	}

	w.Header().Set("Cache-Control", "no-store")

	return writeJSON(w, statusCode, data)
}

// writeJSON writes data as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}
