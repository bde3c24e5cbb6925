package wire

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		typ     SignalType
		payload map[string]any
	}{
		{
			name:    "heartbeat with sender",
			typ:     SignalHeartbeat,
			payload: map[string]any{"sender": "test"},
		},
		{
			name:    "dock request with nested payload",
			typ:     SignalDockRequest,
			payload: map[string]any{"name": "worker-1", "caps": map[string]any{"video": true}},
		},
		{
			name:    "empty payload",
			typ:     SignalUndock,
			payload: map[string]any{},
		},
		{
			name:    "nil payload",
			typ:     SignalDockApprove,
			payload: nil,
		},
		{
			name:    "domain-specific type",
			typ:     DomainBase + 2,
			payload: map[string]any{"score": float64(42)},
		},
		{
			name:    "unknown type code",
			typ:     SignalType(0x9999),
			payload: map[string]any{"k": "v"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeAt(tt.typ, tt.payload, ProtocolVersion, 1700000000)
			if err != nil {
				t.Fatalf("EncodeAt failed: %v", err)
			}

			sig, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if sig.Type != tt.typ {
				t.Errorf("type = %v, want %v", sig.Type, tt.typ)
			}
			if sig.Version != ProtocolVersion {
				t.Errorf("version = %d, want %d", sig.Version, ProtocolVersion)
			}
			if sig.Timestamp != 1700000000 {
				t.Errorf("timestamp = %d, want 1700000000", sig.Timestamp)
			}

			want := tt.payload
			if want == nil {
				want = map[string]any{}
			}
			if !reflect.DeepEqual(sig.Payload, want) {
				t.Errorf("payload = %v, want %v", sig.Payload, want)
			}
		})
	}
}

func TestEncodeEmptyPayloadLength(t *testing.T) {
	// An empty payload must encode as exactly "{}" (2 bytes).
	data, err := Encode(SignalHeartbeat, map[string]any{})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(data) != HeaderSize+2 {
		t.Errorf("encoded length = %d, want %d", len(data), HeaderSize+2)
	}
	if got := binary.BigEndian.Uint32(data[4:8]); got != 2 {
		t.Errorf("declared payload length = %d, want 2", got)
	}
	if string(data[HeaderSize:]) != "{}" {
		t.Errorf("payload bytes = %q, want {}", data[HeaderSize:])
	}
}

func TestDecodeBufferTooSmall(t *testing.T) {
	for size := 0; size < HeaderSize; size++ {
		_, err := Decode(make([]byte, size))
		if !errors.Is(err, ErrBufferTooSmall) {
			t.Errorf("size %d: err = %v, want ErrBufferTooSmall", size, err)
		}
	}
}

func TestDecodeIncompletePayload(t *testing.T) {
	data, err := EncodeAt(SignalHeartbeat, map[string]any{"sender": "test"}, ProtocolVersion, 1700000000)
	if err != nil {
		t.Fatalf("EncodeAt failed: %v", err)
	}

	// Truncate the payload but leave the header intact.
	_, err = Decode(data[:HeaderSize+3])
	if !errors.Is(err, ErrIncompletePayload) {
		t.Errorf("err = %v, want ErrIncompletePayload", err)
	}

	// A header alone with a nonzero declared length is also incomplete.
	_, err = Decode(data[:HeaderSize])
	if !errors.Is(err, ErrIncompletePayload) {
		t.Errorf("header only: err = %v, want ErrIncompletePayload", err)
	}
}

func TestDecodeMalformedPayloadJSON(t *testing.T) {
	body := []byte(`{"sender": truncated`)
	data := make([]byte, HeaderSize+len(body))
	binary.BigEndian.PutUint16(data[0:2], uint16(SignalHeartbeat))
	binary.BigEndian.PutUint16(data[2:4], ProtocolVersion)
	binary.BigEndian.PutUint32(data[4:8], uint32(len(body)))
	binary.BigEndian.PutUint32(data[8:12], 1700000000)
	copy(data[HeaderSize:], body)

	// Malformed payload JSON is non-fatal: the signal type stays usable.
	sig, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if sig.Type != SignalHeartbeat {
		t.Errorf("type = %v, want HEARTBEAT", sig.Type)
	}
	if len(sig.Payload) != 0 {
		t.Errorf("payload = %v, want empty map", sig.Payload)
	}
	if sig.Payload == nil {
		t.Error("payload is nil, want empty map")
	}
}

func TestDecodeHeartbeatExample(t *testing.T) {
	data, err := Encode(SignalHeartbeat, map[string]any{"sender": "test"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	sig, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if sig.Type != 0x04 {
		t.Errorf("type = 0x%02x, want 0x04", uint16(sig.Type))
	}
	if sig.Payload["sender"] != "test" {
		t.Errorf("payload sender = %v, want test", sig.Payload["sender"])
	}
}

func TestSignalTypeString(t *testing.T) {
	tests := []struct {
		typ  SignalType
		want string
	}{
		{SignalDockRequest, "DOCK_REQUEST"},
		{SignalDockApprove, "DOCK_APPROVE"},
		{SignalDockReject, "DOCK_REJECT"},
		{SignalHeartbeat, "HEARTBEAT"},
		{SignalUndock, "UNDOCK"},
		{SignalError, "ERROR"},
		{SignalType(0xBEEF), "unknown_0xbeef"},
		{SignalType(0x42), "unknown_0x42"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("SignalType(0x%02x).String() = %q, want %q", uint16(tt.typ), got, tt.want)
		}
	}
}

func TestTypeForName(t *testing.T) {
	if got := TypeForName("HEARTBEAT"); got != SignalHeartbeat {
		t.Errorf("TypeForName(HEARTBEAT) = %v", got)
	}
	if got := TypeForName("NO_SUCH_SIGNAL"); got != SignalError {
		t.Errorf("TypeForName(NO_SUCH_SIGNAL) = %v, want ERROR", got)
	}
}

func TestRegisterSignalName(t *testing.T) {
	const code = DomainBase + 0x10
	RegisterSignalName(code, "ANALYSIS_DONE")
	if got := code.String(); got != "ANALYSIS_DONE" {
		t.Errorf("String() = %q after registration", got)
	}
	if got := TypeForName("ANALYSIS_DONE"); got != code {
		t.Errorf("TypeForName = %v, want 0x%02x", got, uint16(code))
	}
}
