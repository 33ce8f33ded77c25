// Package transport publishes completed feature records to downstream
// consumers (visualization, world generation). Implementations must be
// safe for use from the single consumer context and must never block it:
// a slow client costs dropped frames, not latency.
package transport

// Transport defines a generic interface for sending feature records or
// events. Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}
