// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package limiter

import (
	"sync"
	"testing"
	"time"
)

// mockTimeProvider maintains a controllable current time for testing.
type mockTimeProvider struct {
	mu          sync.Mutex
	currentTime time.Time
}

// Now returns the current mock time.
func (m *mockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.currentTime
}

// Sleep advances the mock current time by the specified duration.
func (m *mockTimeProvider) Sleep(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentTime = m.currentTime.Add(d)
}

// testOptions allows 3 requests per 3 seconds, so one token refills every second.
func testOptions() Options {
	return Options{
		Window:           3 * time.Second,
		Max:              3,
		PassIPs:          []string{"127.0.0.1"},
		BlockIPs:         []string{"10.0.0.1"},
		IPv4Prefix:       24,
		IPv6Prefix:       48,
		ExcludedPrefixes: []string{"/assets/"},
	}
}

// newTestLimiter returns a Limiter driven by a mock clock.
func newTestLimiter(t *testing.T, opts Options) (*Limiter, *mockTimeProvider) {
	t.Helper()

	mockTime := &mockTimeProvider{currentTime: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	l := New(opts)
	l.now = mockTime.Now

	return l, mockTime
}
