// Package hub implements the connection registry and dispatcher.
//
// The Hub tracks one live stream per user key, fans events out to one or all
// clients, and runs a single shared liveness-ping loop while any client is
// connected. A mutex guards the registry; writes happen outside it on
// per-connection goroutines so one slow sink never stalls the rest. Any write
// failure evicts the offending connection.
package hub
