// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package idgen

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	now := time.Now()

	assert.Equal(t, strings.ReplaceAll(now.Format("15:04:05"), ":", ""), maketime(now))
	assert.Len(t, Make(), 10)
}

func TestNonce(t *testing.T) {
	t.Parallel()

	first, second := Nonce(), Nonce()
	assert.NotEqual(t, first, second)

	raw, err := base64.StdEncoding.DecodeString(first)
	require.NoError(t, err)
	assert.Len(t, raw, nonceBytes)
}
