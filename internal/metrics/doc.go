// Package metrics provides the observability hooks for build steps and graph invocations.
//
// Components receive a Recorder through dependency injection. NoopRecorder is the
// default; PrometheusRecorder is swapped in when `metrics.enabled` is set and its
// registry is served by the dev server.
package metrics
