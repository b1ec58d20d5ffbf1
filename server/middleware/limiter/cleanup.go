// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"time"

	"github.com/rs/zerolog/log"
)

// doCleanup starts a cleanup of idle limiters at most once per CleanupInterval.
func (l *Limiter) doCleanup() {
	now := l.now()

	l.cleanupMu.Lock()
	defer l.cleanupMu.Unlock()

	if l.lastCleanupAt.IsZero() {
		l.lastCleanupAt = now

		return
	}

	if now.Sub(l.lastCleanupAt) < CleanupInterval {
		return
	}

	l.lastCleanupAt = now

	go func() {
		start := time.Now()

		l.cleanupExpiredLimiters()

		log.Debug().Time("start", start).Dur("dur", time.Since(start)).Msg("limiter cleanup")
	}()
}
