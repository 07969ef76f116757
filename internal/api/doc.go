// Package api hosts the HTTP server used by `pagewatch schedule`. Routes:
//   - GET /healthz and /readyz for container probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/runs/last for the most recent check report.
//   - POST /v1/runs to trigger a check outside the schedule.
package api
