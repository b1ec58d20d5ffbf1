// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
This file provides network-based rate limiting for HTTP requests.

Clients are grouped by their IP network, and every network gets a token
bucket holding Max tokens that refills completely over Window. A network can
therefore send at most Max requests in a burst, then one more every
Window/Max.
*/
package limiter

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	LimiterExpiryDuration = time.Hour       // How long to keep idle limiters in memory before cleanup.
	CleanupInterval       = 5 * time.Minute // Interval between limiter cleanup runs.
)

// Options configures a Limiter.
type Options struct {
	// Window is the time in which a full bucket of Max requests refills.
	Window time.Duration

	// Max is the number of requests a network may send per Window.
	Max int

	// PassIPs and BlockIPs hold IP addresses or CIDRs.
	PassIPs  []string
	BlockIPs []string

	// IPv4Prefix and IPv6Prefix are the network sizes clients are grouped by.
	IPv4Prefix int
	IPv6Prefix int

	// ExcludedPrefixes won't have traffic filtered by the limiter.
	ExcludedPrefixes []string
}

// Limiter holds the rate limiters of all known networks.
type Limiter struct {
	opts Options

	limiters sync.Map // network string -> *limiterWrapper

	// now is a wrapper for time.Now, which allows us to mock it in tests.
	now func() time.Time

	cleanupMu     sync.Mutex
	lastCleanupAt time.Time
}

// New returns a Limiter.
func New(opts Options) *Limiter {
	return &Limiter{
		opts: opts,
		now:  time.Now,
	}
}

// limiterWrapper holds a rate limiter and additional metadata.
//
// Limiters are associated with an IP network and persist in Limiter.limiters.
type limiterWrapper struct {
	limiter    *rate.Limiter
	network    string     // Associated network identifier
	lastAccess time.Time  // Last time limiter was accessed
	mu         sync.Mutex // mutex for operations on this limiter
}

// serializableLimiter is a representation of a limiterWrapper that can be
// safely serialized to and from JSON. It excludes non-serializable fields
// like mutexes and reconstructs the rate.Limiter from its parameters.
type serializableLimiter struct {
	Network    string    `json:"network"`
	LastAccess time.Time `json:"last_access"`
	Tokens     float64   `json:"tokens"`
}

// every returns the bucket refill rate.
func (l *Limiter) every() rate.Limit {
	return rate.Every(l.opts.Window / time.Duration(l.opts.Max))
}

// Save serializes the current state of all limiters to the provided writer.
func (l *Limiter) Save(w io.Writer) error {
	stateToSave := []*serializableLimiter{}

	l.limiters.Range(func(key, value any) bool {
		limWrapper, ok := value.(*limiterWrapper)
		if !ok {
			log.Warn().Any("key", key).
				Msg("Skipping invalid limiter type during state save")

			return true // continue iteration
		}

		limWrapper.mu.Lock()

		stateToSave = append(stateToSave, &serializableLimiter{
			Network:    limWrapper.network,
			LastAccess: limWrapper.lastAccess,
			Tokens:     limWrapper.limiter.TokensAt(limWrapper.lastAccess),
		})

		limWrapper.mu.Unlock()

		return true
	})

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ") // Pretty-print for readability

	if err := encoder.Encode(stateToSave); err != nil {
		return err
	}

	log.Info().Int("count", len(stateToSave)).Msg("Successfully saved limiter state")

	return nil
}

// Load deserializes limiter state from the provided reader.
//
// Note that this will overwrite any existing limiters in memory with the
// loaded state. Buckets are restored with the tokens they held at their
// last access and keep refilling from there.
func (l *Limiter) Load(r io.Reader) error {
	var loadedState []*serializableLimiter

	if err := json.NewDecoder(r).Decode(&loadedState); err != nil {
		// An empty file is not an error, just means we start fresh.
		if errors.Is(err, io.EOF) {
			log.Info().Msg("Limiter state file is empty, starting fresh")

			return nil
		}

		return err
	}

	// For a clean load, first clear the existing limiters.
	l.limiters.Clear()

	for _, sl := range loadedState {
		limWrapper := l.newLimiterWrapper(sl.Network, sl.LastAccess)

		if used := l.opts.Max - int(sl.Tokens); used > 0 {
			limWrapper.limiter.AllowN(sl.LastAccess, min(used, l.opts.Max))
		}

		l.limiters.Store(sl.Network, limWrapper)
	}

	log.Info().Int("count", len(loadedState)).Msg("Successfully loaded limiter state")

	return nil
}

// LoadFile restores the limiter state from path. Problems are logged and
// the limiter starts fresh.
func (l *Limiter) LoadFile(path string) {
	file, err := os.Open(path) // #nosec:G304
	if err != nil {
		if os.IsNotExist(err) {
			// This is expected on first run; we'll start with a fresh state.
			log.Info().Str("file", path).
				Msg("Limiter state file not found, starting with a fresh state")
		} else {
			log.Warn().Err(err).Str("file", path).
				Msg("Could not open limiter state file; starting with a fresh state")
		}

		return
	}
	defer file.Close()

	if err := l.Load(file); err != nil {
		log.Warn().Err(err).Str("file", path).
			Msg("Could not parse limiter state file; starting with a fresh state")
	}
}

// SaveFile writes the limiter state to path.
func (l *Limiter) SaveFile(path string) error {
	log.Info().Str("file", path).Msg("Saving limiter state...")

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	file, err := os.Create(path) // #nosec:G304
	if err != nil {
		return err
	}
	defer file.Close()

	return l.Save(file)
}

// checkRateLimit attempts to consume 1 token from the limiterWrapper.
//
// Returns true if the request is allowed.
func (l *Limiter) checkRateLimit(limWrapper *limiterWrapper) bool {
	limWrapper.mu.Lock()
	defer limWrapper.mu.Unlock()

	now := l.now()
	limWrapper.lastAccess = now

	return limWrapper.limiter.AllowN(now, 1)
}

// getOrCreateLimiter returns the limiterWrapper for the given network.
func (l *Limiter) getOrCreateLimiter(network string) *limiterWrapper {
	if value, ok := l.limiters.Load(network); ok {
		if limWrapper, ok := value.(*limiterWrapper); ok {
			return limWrapper
		}
	}

	value, _ := l.limiters.LoadOrStore(network, l.newLimiterWrapper(network, l.now()))

	limWrapper, _ := value.(*limiterWrapper)

	return limWrapper
}

// newLimiterWrapper creates a new limiterWrapper holding a full bucket.
func (l *Limiter) newLimiterWrapper(network string, lastAccess time.Time) *limiterWrapper {
	return &limiterWrapper{
		limiter:    rate.NewLimiter(l.every(), l.opts.Max),
		network:    network,
		lastAccess: lastAccess,
	}
}

// cleanupExpiredLimiters removes limiters that haven't been accessed for the expiry duration.
func (l *Limiter) cleanupExpiredLimiters() {
	now := l.now()

	var keysToDelete []any

	// Collect keys to delete in a slice to avoid deleting during Range()
	l.limiters.Range(func(key, value any) bool {
		limWrapper, ok := value.(*limiterWrapper)
		if !ok {
			keysToDelete = append(keysToDelete, key)

			return true
		}

		limWrapper.mu.Lock()

		lastAccess := limWrapper.lastAccess
		limWrapper.mu.Unlock()

		if now.Sub(lastAccess) > LimiterExpiryDuration {
			keysToDelete = append(keysToDelete, key)
		}

		return true
	})

	for _, key := range keysToDelete {
		l.limiters.Delete(key)
	}

	if len(keysToDelete) > 0 {
		log.Info().Int("count", len(keysToDelete)).
			Msg("Cleaned up expired limiters")
	}
}
