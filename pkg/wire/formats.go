package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
)

// ErrUnrecognizedFormat indicates that no format in the decode chain
// could parse the bytes.
var ErrUnrecognizedFormat = errors.New("unrecognized signal format")

// Format is one strategy in the decode chain. Decode returns the parsed
// signal and true, or nil and false when the bytes are not in this format.
type Format interface {
	// Name identifies the format in diagnostics.
	Name() string

	// Decode attempts to parse the bytes as this format.
	Decode(data []byte) (*Signal, bool)
}

// Chain tries an ordered list of formats until one parses. The zero
// value is unusable; construct with NewChain.
type Chain struct {
	formats []Format
}

// NewChain returns the standard decode chain: binary first, then legacy
// JSON Format A, then legacy JSON Format B.
func NewChain() *Chain {
	return &Chain{formats: []Format{
		BinaryFormat{},
		FormatA{},
		FormatB{},
	}}
}

// Append adds a format to the end of the chain. Later generations of the
// mesh add new encodings here without touching the existing parsers.
func (c *Chain) Append(f Format) {
	c.formats = append(c.formats, f)
}

// Decode runs the chain in order. Returns ErrUnrecognizedFormat when no
// format parses the bytes.
func (c *Chain) Decode(data []byte) (*Signal, error) {
	sig, _, err := c.DecodeNamed(data)
	return sig, err
}

// DecodeNamed is Decode plus the name of the format that parsed the
// bytes, for diagnostics.
func (c *Chain) DecodeNamed(data []byte) (*Signal, string, error) {
	for _, f := range c.formats {
		if sig, ok := f.Decode(data); ok {
			return sig, f.Name(), nil
		}
	}
	return nil, "", ErrUnrecognizedFormat
}

// defaultChain backs the package-level DecodeAny.
var defaultChain = NewChain()

// DecodeAny decodes bytes in any of the three historical wire encodings.
// Returns nil only if none of the formats parse.
func DecodeAny(data []byte) *Signal {
	sig, err := defaultChain.Decode(data)
	if err != nil {
		return nil
	}
	return sig
}

// BinaryFormat parses the canonical binary encoding.
type BinaryFormat struct{}

// Name returns "binary".
func (BinaryFormat) Name() string { return "binary" }

// Decode parses the bytes when they are structurally plausible as a
// binary signal: room for a header, and a declared payload length that
// fits the buffer.
func (BinaryFormat) Decode(data []byte) (*Signal, bool) {
	if len(data) < HeaderSize {
		return nil, false
	}
	payloadLen := binary.BigEndian.Uint32(data[4:8])
	if payloadLen > DefaultMaxPayloadSize || int(HeaderSize+payloadLen) > len(data) {
		return nil, false
	}
	sig, err := Decode(data)
	if err != nil {
		return nil, false
	}
	return sig, true
}

// FormatA parses the first-generation JSON encoding:
// {"t": <code>, "s": "<sender>", "d": {...}, "ts": <unixSeconds>}.
type FormatA struct{}

// Name returns "json-a".
func (FormatA) Name() string { return "json-a" }

// Decode parses the bytes as Format A. The numeric "t" and "ts" fields
// are required; "s" and "d" are optional.
func (FormatA) Decode(data []byte) (*Signal, bool) {
	var msg struct {
		Type      *float64       `json:"t"`
		Sender    string         `json:"s"`
		Data      map[string]any `json:"d"`
		Timestamp *float64       `json:"ts"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false
	}
	if msg.Type == nil || msg.Timestamp == nil {
		return nil, false
	}
	payload := msg.Data
	if payload == nil {
		payload = map[string]any{}
	}
	return &Signal{
		Type:      SignalType(uint16(*msg.Type)),
		Version:   ProtocolVersion,
		Timestamp: uint32(*msg.Timestamp),
		Source:    msg.Sender,
		Payload:   payload,
	}, true
}

// FormatB parses the second-generation JSON encoding:
// {"type": "<name>", "source": "<sender>", "payload": {...},
// "timestamp": <unixSeconds>, "nonce": "<string>"}.
type FormatB struct{}

// Name returns "json-b".
func (FormatB) Name() string { return "json-b" }

// Decode parses the bytes as Format B. The "type" name and numeric
// "timestamp" are required. Signal names absent from the name table map
// to SignalError rather than failing the decode.
func (FormatB) Decode(data []byte) (*Signal, bool) {
	var msg struct {
		Type      *string        `json:"type"`
		Source    string         `json:"source"`
		Payload   map[string]any `json:"payload"`
		Timestamp *float64       `json:"timestamp"`
		Nonce     string         `json:"nonce"` // deduplication hint, unused by this receiver
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false
	}
	if msg.Type == nil || msg.Timestamp == nil {
		return nil, false
	}
	payload := msg.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return &Signal{
		Type:      TypeForName(*msg.Type),
		Version:   ProtocolVersion,
		Timestamp: uint32(*msg.Timestamp),
		Source:    msg.Source,
		Payload:   payload,
	}, true
}
