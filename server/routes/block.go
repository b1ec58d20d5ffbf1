// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"net/http"
)

type BlockData struct {
	Reason string `json:"error"`
}

// BlockPage writes a block page as a JSON response.
//
// It sets the appropriate headers, writes the given HTTP status code,
// and then writes the JSON body.
func BlockPage(w http.ResponseWriter, data BlockData, statusCode int) {
	w.Header().Set("Cache-Control", "no-store")

	_ = writeJSON(w, statusCode, data)
}
