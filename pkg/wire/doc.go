// Package wire defines the signal wire formats for the mesh protocol.
//
// The canonical encoding is a fixed 12-byte big-endian header followed by
// a UTF-8 JSON payload:
//
//	offset 0: signal type (uint16)
//	offset 2: protocol version (uint16)
//	offset 4: payload length in bytes (uint32)
//	offset 8: timestamp, unix seconds (uint32)
//
// Two additional JSON encodings survive from earlier generations of the
// mesh and must still be accepted on receive:
//   - Format A: {"t": <code>, "s": "<sender>", "d": {...}, "ts": <seconds>}
//   - Format B: {"type": "<name>", "source": "<sender>", "payload": {...},
//     "timestamp": <seconds>, "nonce": "<string>"}
//
// DecodeAny runs an ordered chain of format parsers so that a receiver
// accepts all three encodings without requiring synchronized upgrades
// across the mesh. New formats are added by appending to the chain.
//
// # Decode Leniency
//
// A header that parses but carries undecodable payload JSON still yields a
// usable signal with an empty payload; one corrupt peer must not be able
// to halt the mesh. Unknown signal type codes decode successfully and
// render as "unknown_0x<hex>" in diagnostics.
package wire
