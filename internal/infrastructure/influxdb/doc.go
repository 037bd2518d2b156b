// Package influxdb provides time-series metrics for Hearth.
//
// Three measurements are written: model_calls (latency and token usage
// per language model call), action_outcomes (per-action result and
// latency), and capture_sessions (audio recording duration and size).
//
// The integration is optional; when disabled in config, Connect returns
// ErrDisabled and callers run without metrics. Writes are non-blocking
// and batched, so a slow or unreachable InfluxDB never delays request
// handling.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//		// metrics off, continue without
//	}
//	defer client.Close()
//
//	client.WriteModelCall("gpt-5-mini", "text", latency, 1200, 85, 900)
package influxdb
