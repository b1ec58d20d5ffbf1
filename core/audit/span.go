// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package audit

import (
	"context"
	"encoding/base64"
	"fmt"
	"runtime/trace"
	"strconv"
	"time"

	servertiming "github.com/mitchellh/go-server-timing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Span represents one unit of work in flight: an HTTP exchange with a user,
// or a call into the render module.
type Span struct {
	// only these fields are set automatically
	task     *trace.Task
	start    time.Time
	duration time.Duration
	metric   *servertiming.Metric

	Destination TrafficDestination
	RequestID   string
	Method      string
	URL         string
	StatusCode  int
	Size        int
	Error       error
}

// TrafficDestination describes the logical destination of a span.
type TrafficDestination string

// Constants for traffic destinations.
const (
	ToUser     TrafficDestination = "user"
	ToRenderer TrafficDestination = "render"
)

// ServerTimingName returns the metric name, "<destination>$<method>$<base64 url>".
func (span Span) ServerTimingName() string {
	// base64 without trailing '=' matches the token syntax
	return string(span.Destination) + "$" + span.Method + "$" + base64.RawURLEncoding.EncodeToString([]byte(span.URL))
}

// Begin starts the span's clock, its runtime/trace task and, when ctx carries
// server timing, its Server-Timing metric.
func (span *Span) Begin(ctx context.Context) context.Context {
	span.start = time.Now()

	ctx, span.task = trace.NewTask(ctx, "http."+string(span.Destination))
	if servertimingContext := servertiming.FromContext(ctx); servertimingContext != nil {
		span.metric = servertimingContext.NewMetric(span.ServerTimingName())
		span.metric.Extra = make(map[string]string)
		span.metric.Extra["start"] = strconv.FormatFloat(float64(span.start.UnixNano())/float64(time.Millisecond), 'f', -1, 64)
	}

	return ctx
}

// End stops the span. Calling it more than once is harmless.
func (span *Span) End() {
	if span.task == nil {
		return
	}

	span.duration = time.Since(span.start)
	span.task.End()

	if span.metric != nil {
		span.metric.Duration = span.duration
	}

	span.task = nil
}

// Duration reports how long the span took; zero until End is called.
func (span Span) Duration() time.Duration {
	return span.duration
}

// Log writes the span as a structured "sys=http" event.
//
// Failed spans are logged at warn level, everything else at debug.
func (span Span) Log() {
	var event *zerolog.Event

	if span.Error != nil || span.StatusCode >= 500 {
		event = log.Warn()
	} else {
		event = log.Debug()
	}

	event.Str("sys", "http")
	event.Str("method", span.Method)
	event.Str("url", span.URL)
	event.Int("status_code", span.StatusCode)
	event.Str("len", humanizeSize(span.Size))
	event.Dur("dur", span.duration)
	event.Str("destination", string(span.Destination))
	event.Str("request_id", span.RequestID)

	if span.Error != nil {
		event.Err(span.Error)
	}

	event.Send()
}

const (
	bytesInKB = 1024
	bytesInMB = bytesInKB * bytesInKB
	bytesInGB = bytesInMB * bytesInKB
)

func humanizeSize(x int) string {
	if x < bytesInKB {
		return strconv.Itoa(x)
	}

	if x < bytesInMB {
		return fmt.Sprintf("%.2fK", float64(x)/bytesInKB)
	}

	if x < bytesInGB {
		return fmt.Sprintf("%.2fM", float64(x)/bytesInMB)
	}

	return fmt.Sprintf("%.2fG", float64(x)/bytesInGB)
}
