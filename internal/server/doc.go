// Package server wires the hub to its HTTP surface: the SSE stream endpoint,
// the control endpoint for backend callers, and the observability routes.
package server
