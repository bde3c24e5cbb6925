// Package peers tracks mesh peer membership and liveness.
//
// A peer is created on its first DOCK_REQUEST or HEARTBEAT, refreshed on
// every later one, and marked inactive either by an explicit UNDOCK or by
// the periodic staleness sweep once it has been silent longer than the
// peer timeout.
//
// # Timeout Invariant
//
// The peer timeout must be at least three times the largest heartbeat
// interval in use across the mesh. A tighter timeout evicts live peers on
// ordinary heartbeat jitter and sends the mesh into an evict/rejoin
// thrashing loop. ValidateTimings enforces the invariant; configuration
// loading refuses to start a node that violates it.
package peers
