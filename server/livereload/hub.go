// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package livereload tells browsers to reload the page when watched source
files change, in development.

Browsers subscribe to a server-sent event stream at Path; the client script
injected into every page reloads on each "reload" event.
*/
package livereload

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Path is where the event stream is served.
const Path = "/__livereload"

// ClientScript reloads the page on every reload event.
const ClientScript = `(() => {
  const source = new EventSource("` + Path + `");
  source.addEventListener("reload", () => location.reload());
})();`

// Hub fans reload events out to every subscribed browser.
type Hub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subs: map[chan struct{}]struct{}{},
	}
}

func (h *Hub) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch
}

func (h *Hub) unsubscribe(ch chan struct{}) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// Subscribers returns the number of connected browsers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs)
}

// Notify sends a reload event to every subscriber. Subscribers with an
// event still pending are not sent a second one.
func (h *Hub) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}

	log.Debug().Int("subscribers", len(h.subs)).Msg("Sent live reload event")
}

// ServeHTTP streams reload events until the client goes away. The stream is
// exempt from the server's write timeout.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug().Err(err).Msg("Live reload stream keeps the server write timeout")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	_, _ = w.Write([]byte("event: ready\ndata: 1\n\n"))

	if err := rc.Flush(); err != nil {
		log.Warn().Err(err).Msg("Live reload stream cannot be flushed")

		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ch:
			if _, err := w.Write([]byte("event: reload\ndata: 1\n\n")); err != nil {
				return
			}

			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
