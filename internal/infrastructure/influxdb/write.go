package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteModelCall records a single language model call.
//
// The write is non-blocking; points are batched and sent asynchronously.
//
// Tags: model name and request source ("text", "audio", "router").
// Fields: wall-clock latency, prompt/completion token counts, and the
// number of prompt tokens served from the provider's cache.
func (c *Client) WriteModelCall(model, source string, latency time.Duration, promptTokens, completionTokens, cachedTokens int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"model_calls",
		map[string]string{
			"model":  model,
			"source": source,
		},
		map[string]interface{}{
			"latency_ms":        float64(latency.Milliseconds()),
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"cached_tokens":     cachedTokens,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteActionOutcome records the result of a single planned action.
//
// Tags: the Home Assistant domain and service, plus the outcome
// ("applied", "denied", "failed"). The deny reason is a tag when set.
func (c *Client) WriteActionOutcome(domain, service, outcome, reason string, latency time.Duration) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"domain":  domain,
		"service": service,
		"outcome": outcome,
	}
	if reason != "" {
		tags["reason"] = reason
	}

	point := write.NewPoint(
		"action_outcomes",
		tags,
		map[string]interface{}{
			"latency_ms": float64(latency.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteCaptureSession records a completed audio capture session.
//
// Tags: the terminal outcome ("captured", "failed", "reset").
// Fields: recording duration and captured asset size in bytes.
func (c *Client) WriteCaptureSession(outcome string, duration time.Duration, sizeBytes int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"capture_sessions",
		map[string]string{
			"outcome": outcome,
		},
		map[string]interface{}{
			"duration_s": duration.Seconds(),
			"size_bytes": sizeBytes,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point for measurements the helpers don't cover.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
