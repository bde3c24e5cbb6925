package wire

import (
	"fmt"
	"time"
)

// ProtocolVersion is the wire protocol version written into every
// binary-encoded signal header.
const ProtocolVersion uint16 = 1

// SignalType identifies the kind of a signal.
type SignalType uint16

// Canonical signal type codes. Codes below 0xE0 are reserved for the
// mesh protocol itself; deploying services allocate domain-specific
// codes from DomainBase upward.
const (
	// SignalDockRequest asks to join the mesh.
	SignalDockRequest SignalType = 0x01

	// SignalDockApprove completes a join handshake.
	SignalDockApprove SignalType = 0x02

	// SignalDockReject denies a join request.
	SignalDockReject SignalType = 0x03

	// SignalHeartbeat advertises liveness.
	SignalHeartbeat SignalType = 0x04

	// SignalUndock announces a deliberate departure from the mesh.
	SignalUndock SignalType = 0x05

	// SignalError is the generic fallback code for signal names that are
	// not present in the name table.
	SignalError SignalType = 0xFF

	// DomainBase is the first code available for service-specific signals.
	DomainBase SignalType = 0xE0
)

// signalNames maps canonical codes to their wire names. Extended at
// initialization time via RegisterSignalName.
var signalNames = map[SignalType]string{
	SignalDockRequest: "DOCK_REQUEST",
	SignalDockApprove: "DOCK_APPROVE",
	SignalDockReject:  "DOCK_REJECT",
	SignalHeartbeat:   "HEARTBEAT",
	SignalUndock:      "UNDOCK",
	SignalError:       "ERROR",
}

// signalCodes is the inverse of signalNames.
var signalCodes = func() map[string]SignalType {
	m := make(map[string]SignalType, len(signalNames))
	for code, name := range signalNames {
		m[name] = code
	}
	return m
}()

// RegisterSignalName adds a domain-specific code/name pair to the
// bidirectional name table. Call during process initialization, before
// any decoding starts; the table is not synchronized.
func RegisterSignalName(code SignalType, name string) {
	signalNames[code] = name
	signalCodes[name] = code
}

// String returns the registered signal name, or "unknown_0x<hex>" for
// codes not present in the name table.
func (t SignalType) String() string {
	if name, ok := signalNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown_0x%02x", uint16(t))
}

// Registered reports whether the code has a registered name.
func (t SignalType) Registered() bool {
	_, ok := signalNames[t]
	return ok
}

// TypeForName returns the code registered for a signal name.
// Unrecognized names map to SignalError.
func TypeForName(name string) SignalType {
	if code, ok := signalCodes[name]; ok {
		return code
	}
	return SignalError
}

// Signal is one typed, timestamped message exchanged between mesh peers.
// A decoded Signal is independent of its source bytes; the payload map is
// owned by the signal and never aliases the receive buffer.
type Signal struct {
	// Type identifies the kind of signal.
	Type SignalType

	// Version is the wire protocol version the sender encoded with.
	Version uint16

	// Timestamp is the sender's clock at encode time, unix seconds.
	Timestamp uint32

	// Source is the sender name carried by the legacy JSON encodings.
	// Empty for binary-encoded signals, which identify senders by
	// network address instead.
	Source string

	// Payload is the JSON-serializable signal body. Never nil after a
	// successful decode.
	Payload map[string]any
}

// NewSignal creates a signal of the given type stamped with the current
// time. A nil payload becomes an empty map.
func NewSignal(t SignalType, payload map[string]any) *Signal {
	if payload == nil {
		payload = map[string]any{}
	}
	return &Signal{
		Type:      t,
		Version:   ProtocolVersion,
		Timestamp: uint32(time.Now().Unix()),
		Payload:   payload,
	}
}

// Time returns the signal timestamp as a time.Time.
func (s *Signal) Time() time.Time {
	return time.Unix(int64(s.Timestamp), 0)
}
