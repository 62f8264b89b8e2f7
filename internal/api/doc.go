// Package api hosts the HTTP server, middleware, and REST handlers for
// operator access. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/scrape and /v1/scrape/{source} for run triggers.
//   - GET /v1/status for run statistics and per-source configuration.
//   - POST /v1/scheduler/start and /v1/scheduler/stop for the periodic loop.
package api
