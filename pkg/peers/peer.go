package peers

import (
	"errors"
	"fmt"
	"time"
)

// Timing defaults. The defaults satisfy ValidateTimings with room to
// spare: a peer may miss two heartbeats and still survive the sweep.
const (
	// DefaultHeartbeatInterval is the default interval between heartbeats.
	DefaultHeartbeatInterval = 30 * time.Second

	// DefaultPeerTimeout is the default heartbeat silence after which a
	// peer is considered inactive.
	DefaultPeerTimeout = 90 * time.Second

	// DefaultSweepInterval is the default interval between staleness
	// sweeps.
	DefaultSweepInterval = 15 * time.Second

	// MinTimeoutFactor is the required ratio of peer timeout to the
	// largest heartbeat interval across the mesh.
	MinTimeoutFactor = 3
)

// ErrTimeoutTooShort indicates a peer timeout below the thrash-safe
// minimum of MinTimeoutFactor heartbeat intervals.
var ErrTimeoutTooShort = errors.New("peer timeout too short")

// ValidateTimings checks the liveness invariant: the peer timeout must
// be at least MinTimeoutFactor times the largest heartbeat interval any
// peer uses. A violation makes live peers thrash between evicted and
// rejoined on ordinary heartbeat jitter.
func ValidateTimings(peerTimeout, maxHeartbeatInterval time.Duration) error {
	if peerTimeout <= 0 {
		return fmt.Errorf("%w: peer timeout must be positive, got %v", ErrTimeoutTooShort, peerTimeout)
	}
	if maxHeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %v", maxHeartbeatInterval)
	}
	if peerTimeout < MinTimeoutFactor*maxHeartbeatInterval {
		return fmt.Errorf("%w: %v < %d x heartbeat interval %v",
			ErrTimeoutTooShort, peerTimeout, MinTimeoutFactor, maxHeartbeatInterval)
	}
	return nil
}

// Status is the liveness state of a peer.
type Status uint8

const (
	// StatusUnknown is a peer expected from the roster but never heard
	// from.
	StatusUnknown Status = 0

	// StatusActive is a peer heard from within the peer timeout.
	StatusActive Status = 1

	// StatusInactive is a peer that undocked or went silent past the
	// peer timeout.
	StatusInactive Status = 2
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "UNKNOWN"
	case StatusActive:
		return "ACTIVE"
	case StatusInactive:
		return "INACTIVE"
	default:
		return fmt.Sprintf("STATUS_%d", uint8(s))
	}
}

// Peer is one known mesh member. Values returned by the table are
// snapshots; mutating them does not affect the table.
type Peer struct {
	// Addr is the peer's datagram address ("host:port"). The table key.
	Addr string

	// Name is the peer's self-reported name, if any signal carried one.
	Name string

	// LastSeenAt is the local receive time of the last DOCK_REQUEST or
	// HEARTBEAT. Zero for peers never heard from.
	LastSeenAt time.Time

	// Status is the current liveness state.
	Status Status
}
