package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Framing constants.
const (
	// HeaderSize is the fixed binary header size in bytes.
	HeaderSize = 12

	// DefaultMaxPayloadSize is the largest payload Decode accepts (64 KB).
	// A datagram cannot legitimately carry more; a larger declared length
	// is treated as a truncated frame.
	DefaultMaxPayloadSize = 65536
)

// Decode errors.
var (
	// ErrBufferTooSmall indicates fewer than HeaderSize bytes were present.
	ErrBufferTooSmall = errors.New("buffer too small for signal header")

	// ErrIncompletePayload indicates the header declared more payload
	// bytes than the buffer contains.
	ErrIncompletePayload = errors.New("incomplete signal payload")

	// ErrPayloadTooLarge indicates the payload exceeds the encodable maximum.
	ErrPayloadTooLarge = errors.New("signal payload too large")
)

// Encode serializes a signal of the given type stamped with the current
// time. A nil payload encodes as the empty JSON object.
func Encode(t SignalType, payload map[string]any) ([]byte, error) {
	return EncodeAt(t, payload, ProtocolVersion, uint32(time.Now().Unix()))
}

// EncodeAt serializes a signal with an explicit version and timestamp.
// Used by the transport for outbound signals and by tests that need
// deterministic bytes.
func EncodeAt(t SignalType, payload map[string]any, version uint16, timestamp uint32) ([]byte, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	if len(body) > DefaultMaxPayloadSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(body), DefaultMaxPayloadSize)
	}

	buf := make([]byte, HeaderSize+len(body))
	binary.BigEndian.PutUint16(buf[0:2], uint16(t))
	binary.BigEndian.PutUint16(buf[2:4], version)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(body)))
	binary.BigEndian.PutUint32(buf[8:12], timestamp)
	copy(buf[HeaderSize:], body)
	return buf, nil
}

// EncodeSignal serializes an existing signal value, preserving its
// version and timestamp.
func EncodeSignal(s *Signal) ([]byte, error) {
	return EncodeAt(s.Type, s.Payload, s.Version, s.Timestamp)
}

// Decode parses a binary-encoded signal.
//
// Returns ErrBufferTooSmall when the buffer cannot hold a header and
// ErrIncompletePayload when the declared payload length exceeds the
// remaining bytes. Payload bytes that are not valid JSON do not fail the
// decode; the signal is returned with an empty payload so the header
// information stays usable.
func Decode(data []byte) (*Signal, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBufferTooSmall, len(data))
	}

	payloadLen := binary.BigEndian.Uint32(data[4:8])
	if payloadLen > DefaultMaxPayloadSize || int(HeaderSize+payloadLen) > len(data) {
		return nil, fmt.Errorf("%w: header declares %d bytes, %d available",
			ErrIncompletePayload, payloadLen, len(data)-HeaderSize)
	}

	sig := &Signal{
		Type:      SignalType(binary.BigEndian.Uint16(data[0:2])),
		Version:   binary.BigEndian.Uint16(data[2:4]),
		Timestamp: binary.BigEndian.Uint32(data[8:12]),
		Payload:   map[string]any{},
	}

	body := data[HeaderSize : HeaderSize+payloadLen]
	if len(body) > 0 {
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err == nil && payload != nil {
			sig.Payload = payload
		}
		// Malformed payload JSON is deliberately non-fatal: the header
		// already parsed, so the signal type remains usable.
	}
	return sig, nil
}
