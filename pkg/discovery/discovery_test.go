package discovery

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeTXTRoundTrip(t *testing.T) {
	info := &NodeInfo{
		Name:    "analyzer-1",
		NodeID:  "0123456789abcdef",
		Version: 1,
	}

	txt := EncodeNodeTXT(info)
	decoded, err := DecodeNodeTXT(txt)
	require.NoError(t, err)

	assert.Equal(t, info.Name, decoded.Name)
	assert.Equal(t, info.NodeID, decoded.NodeID)
	assert.Equal(t, info.Version, decoded.Version)
}

func TestDecodeNodeTXTMissingFields(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
		want error
	}{
		{
			name: "missing node id",
			txt:  TXTRecordMap{TXTKeyVersion: "1"},
			want: ErrMissingRequired,
		},
		{
			name: "missing version",
			txt:  TXTRecordMap{TXTKeyNodeID: "0123456789abcdef"},
			want: ErrMissingRequired,
		},
		{
			name: "invalid fingerprint",
			txt:  TXTRecordMap{TXTKeyNodeID: "XYZ", TXTKeyVersion: "1"},
			want: ErrInvalidFingerprint,
		},
		{
			name: "unparseable version",
			txt:  TXTRecordMap{TXTKeyNodeID: "0123456789abcdef", TXTKeyVersion: "vX"},
			want: ErrInvalidTXTRecord,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeNodeTXT(tt.txt)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// The node name is optional.
	info, err := DecodeNodeTXT(TXTRecordMap{TXTKeyNodeID: "0123456789abcdef", TXTKeyVersion: "1"})
	require.NoError(t, err)
	assert.Empty(t, info.Name)
}

func TestTXTStringConversions(t *testing.T) {
	txt := TXTRecordMap{"NN": "node-a", "NI": "0123456789abcdef", "PV": "1"}
	parsed := StringsToTXTRecords(TXTRecordsToStrings(txt))
	assert.Equal(t, txt, parsed)

	// Malformed entries are skipped, values may contain '='.
	parsed = StringsToTXTRecords([]string{"malformed", "K=a=b"})
	assert.Equal(t, TXTRecordMap{"K": "a=b"}, parsed)
}

func TestNodeFingerprint(t *testing.T) {
	id := uuid.New()
	fp := NodeFingerprint(id)

	assert.Len(t, fp, FingerprintLength)
	assert.True(t, ValidateFingerprint(fp))

	// Deterministic per UUID, distinct across UUIDs.
	assert.Equal(t, fp, NodeFingerprint(id))
	assert.NotEqual(t, fp, NodeFingerprint(uuid.New()))
}

func TestValidateFingerprint(t *testing.T) {
	assert.True(t, ValidateFingerprint("0123456789abcdef"))
	assert.False(t, ValidateFingerprint("0123456789abcde"))   // too short
	assert.False(t, ValidateFingerprint("0123456789abcdeff")) // too long
	assert.False(t, ValidateFingerprint("0123456789ABCDEF"))  // uppercase
	assert.False(t, ValidateFingerprint("0123456789abcdeg"))  // non-hex
}
