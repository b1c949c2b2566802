// Package middleware provides the HTTP middleware of the album preview
// server.
//
// It includes:
//   - Request logging in W3C Extended Log Format with control characters
//     stripped from every client-supplied field
//   - Prometheus request counters and latency histograms
package middleware
