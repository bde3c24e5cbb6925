package log

import (
	"time"
)

// Event is one mesh log event. CBOR encoding uses integer keys for
// compactness in event files.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// NodeID identifies the local node instance (UUID).
	NodeID string `cbor:"2,keyasint"`

	// Direction indicates signal flow for traffic events.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// PeerAddr is the remote peer address (IP:port), when known.
	PeerAddr string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (exactly one is set).
	Signal    *SignalEvent    `cbor:"6,keyasint,omitempty"`
	Peer      *PeerEvent      `cbor:"7,keyasint,omitempty"`
	Admission *AdmissionEvent `cbor:"8,keyasint,omitempty"`
	Error     *ErrorEvent     `cbor:"9,keyasint,omitempty"`
}

// SignalEvent describes one sent or received signal.
type SignalEvent struct {
	// Type is the signal type code.
	Type uint16 `cbor:"1,keyasint"`

	// Name is the rendered signal name ("HEARTBEAT", "unknown_0x9f", ...).
	Name string `cbor:"2,keyasint"`

	// Format names the wire format that carried the signal
	// ("binary", "json-a", "json-b").
	Format string `cbor:"3,keyasint,omitempty"`

	// Size is the datagram size in bytes.
	Size int `cbor:"4,keyasint,omitempty"`
}

// PeerEvent describes a peer liveness transition.
type PeerEvent struct {
	// Addr is the peer address.
	Addr string `cbor:"1,keyasint"`

	// OldStatus and NewStatus are rendered status names.
	OldStatus string `cbor:"2,keyasint,omitempty"`
	NewStatus string `cbor:"3,keyasint"`

	// Reason states what drove the transition ("heartbeat", "undock",
	// "sweep", "dock").
	Reason string `cbor:"4,keyasint,omitempty"`
}

// AdmissionEvent describes a Tumbler decision.
type AdmissionEvent struct {
	// Signal is the signal name the decision applied to.
	Signal string `cbor:"1,keyasint"`

	// Accepted reports the outcome.
	Accepted bool `cbor:"2,keyasint"`
}

// ErrorEvent describes a non-fatal protocol error, typically a decode
// failure.
type ErrorEvent struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`

	// Context names the operation that failed ("decode", "send", "bind").
	Context string `cbor:"2,keyasint,omitempty"`
}

// Direction indicates the direction of signal flow.
type Direction uint8

const (
	// DirectionIn indicates an inbound signal.
	DirectionIn Direction = 0
	// DirectionOut indicates an outbound signal.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies a log event.
type Category uint8

const (
	// CategorySignal is signal traffic in either direction.
	CategorySignal Category = 0
	// CategoryPeer is a peer membership or liveness transition.
	CategoryPeer Category = 1
	// CategoryAdmission is a Tumbler accept/reject decision.
	CategoryAdmission Category = 2
	// CategoryError is a non-fatal protocol error.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategorySignal:
		return "SIGNAL"
	case CategoryPeer:
		return "PEER"
	case CategoryAdmission:
		return "ADMISSION"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
