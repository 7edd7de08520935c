// Package observability provides structured logging and decision metrics
// for the authorization gate.
//
// This package implements:
//   - zap logger construction from level and format settings
//   - Request ID aware logging helpers
//   - In-process counters for allow/deny decisions per endpoint
package observability
