package wire

import (
	"fmt"
	"testing"
)

func TestDecodeAnyEquivalence(t *testing.T) {
	// A heartbeat in all three historical encodings must decode to the
	// same canonical signal type.
	binaryBytes, err := EncodeAt(SignalHeartbeat, map[string]any{"sender": "node-a"}, ProtocolVersion, 1700000000)
	if err != nil {
		t.Fatalf("EncodeAt failed: %v", err)
	}

	tests := []struct {
		name       string
		data       []byte
		wantSource string
	}{
		{
			name: "binary",
			data: binaryBytes,
		},
		{
			name:       "format A",
			data:       []byte(`{"t": 4, "s": "node-a", "d": {"sender": "node-a"}, "ts": 1700000000}`),
			wantSource: "node-a",
		},
		{
			name:       "format B",
			data:       []byte(`{"type": "HEARTBEAT", "source": "node-a", "payload": {"sender": "node-a"}, "timestamp": 1700000000, "nonce": "abc123"}`),
			wantSource: "node-a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := DecodeAny(tt.data)
			if sig == nil {
				t.Fatal("DecodeAny returned nil")
			}
			if sig.Type != SignalHeartbeat {
				t.Errorf("type = %v, want HEARTBEAT", sig.Type)
			}
			if sig.Timestamp != 1700000000 {
				t.Errorf("timestamp = %d, want 1700000000", sig.Timestamp)
			}
			if sig.Source != tt.wantSource {
				t.Errorf("source = %q, want %q", sig.Source, tt.wantSource)
			}
			if sig.Payload["sender"] != "node-a" {
				t.Errorf("payload sender = %v, want node-a", sig.Payload["sender"])
			}
		})
	}
}

func TestDecodeAnyFormatA(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantNil bool
		wantTyp SignalType
	}{
		{
			name:    "complete message",
			data:    `{"t": 1, "s": "joiner", "d": {"name": "joiner"}, "ts": 1700000000}`,
			wantTyp: SignalDockRequest,
		},
		{
			name:    "missing d defaults to empty payload",
			data:    `{"t": 5, "s": "leaver", "ts": 1700000000}`,
			wantTyp: SignalUndock,
		},
		{
			name:    "unknown numeric code passes through",
			data:    `{"t": 57005, "s": "x", "d": {}, "ts": 1}`,
			wantTyp: SignalType(57005),
		},
		{
			name:    "missing t rejected",
			data:    `{"s": "x", "d": {}, "ts": 1}`,
			wantNil: true,
		},
		{
			name:    "missing ts rejected",
			data:    `{"t": 4, "s": "x", "d": {}}`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := DecodeAny([]byte(tt.data))
			if tt.wantNil {
				if sig != nil {
					t.Fatalf("DecodeAny = %+v, want nil", sig)
				}
				return
			}
			if sig == nil {
				t.Fatal("DecodeAny returned nil")
			}
			if sig.Type != tt.wantTyp {
				t.Errorf("type = %v, want %v", sig.Type, tt.wantTyp)
			}
			if sig.Payload == nil {
				t.Error("payload is nil")
			}
		})
	}
}

func TestDecodeAnyFormatBUnknownName(t *testing.T) {
	sig := DecodeAny([]byte(`{"type": "SOMETHING_NEW", "source": "s", "payload": {}, "timestamp": 1}`))
	if sig == nil {
		t.Fatal("DecodeAny returned nil")
	}
	if sig.Type != SignalError {
		t.Errorf("type = %v, want ERROR for unrecognized name", sig.Type)
	}
}

func TestDecodeAnyUnrecognized(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short garbage", []byte{0x01, 0x02, 0x03}},
		{"json without discriminators", []byte(`{"hello": "world"}`)},
		{"json array", []byte(`[1, 2, 3]`)},
		{"plain text", []byte("not a signal at all, definitely")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if sig := DecodeAny(tt.data); sig != nil {
				t.Errorf("DecodeAny = %+v, want nil", sig)
			}
		})
	}
}

func TestChainAppend(t *testing.T) {
	chain := NewChain()
	chain.Append(prefixedFormat{})

	sig, err := chain.Decode([]byte("PFX|7|1700000000"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if sig.Type != SignalType(7) {
		t.Errorf("type = %v, want 7", sig.Type)
	}

	// The built-in formats still work through the extended chain.
	if _, err := chain.Decode([]byte(`{"t": 4, "ts": 1}`)); err != nil {
		t.Errorf("format A through extended chain: %v", err)
	}
}

func TestChainDecodeNamed(t *testing.T) {
	chain := NewChain()

	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"binary", mustEncode(t, SignalHeartbeat, nil), "binary"},
		{"format A", []byte(`{"t": 4, "ts": 1}`), "json-a"},
		{"format B", []byte(`{"type": "HEARTBEAT", "timestamp": 1}`), "json-b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, format, err := chain.DecodeNamed(tc.data)
			if err != nil {
				t.Fatalf("DecodeNamed failed: %v", err)
			}
			if format != tc.want {
				t.Errorf("format = %q, want %q", format, tc.want)
			}
		})
	}
}

func mustEncode(t *testing.T, typ SignalType, payload map[string]any) []byte {
	t.Helper()
	data, err := Encode(typ, payload)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	return data
}

func TestChainUnrecognizedError(t *testing.T) {
	_, err := NewChain().Decode([]byte("garbage"))
	if err != ErrUnrecognizedFormat {
		t.Errorf("err = %v, want ErrUnrecognizedFormat", err)
	}
}

// prefixedFormat is a toy fourth format used to prove the chain is
// extensible without touching the built-in parsers.
type prefixedFormat struct{}

func (prefixedFormat) Name() string { return "prefixed" }

func (prefixedFormat) Decode(data []byte) (*Signal, bool) {
	var typ uint16
	var ts uint32
	if n, err := fmt.Sscanf(string(data), "PFX|%d|%d", &typ, &ts); err != nil || n != 2 {
		return nil, false
	}
	return &Signal{Type: SignalType(typ), Version: ProtocolVersion, Timestamp: ts, Payload: map[string]any{}}, true
}
