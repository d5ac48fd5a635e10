// Package observability provides structured logging and Prometheus metrics
// for the RBAC control plane.
//
// The logger wraps zap and attaches the chi request id carried in the
// request context. Metrics cover permission checks, effective permission
// resolutions and HTTP traffic, and are exposed through Handler on /metrics.
package observability
