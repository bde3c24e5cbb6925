package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeNodeTXT creates TXT records for a node advertisement.
func EncodeNodeTXT(info *NodeInfo) TXTRecordMap {
	txt := make(TXTRecordMap)
	txt[TXTKeyNodeID] = info.NodeID
	txt[TXTKeyVersion] = strconv.FormatUint(uint64(info.Version), 10)
	if info.Name != "" {
		txt[TXTKeyNodeName] = info.Name
	}
	return txt
}

// DecodeNodeTXT parses the TXT records of a node advertisement.
func DecodeNodeTXT(txt TXTRecordMap) (*NodeInfo, error) {
	info := &NodeInfo{}

	id, ok := txt[TXTKeyNodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyNodeID)
	}
	if !ValidateFingerprint(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFingerprint, id)
	}
	info.NodeID = id

	vStr, ok := txt[TXTKeyVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	v, err := strconv.ParseUint(vStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyVersion, vStr)
	}
	info.Version = uint16(v)

	info.Name = txt[TXTKeyNodeName]
	return info, nil
}

// TXTRecordsToStrings converts a TXT map to the "key=value" strings
// zeroconf expects. Order is unspecified.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	out := make([]string, 0, len(txt))
	for k, v := range txt {
		out = append(out, k+"="+v)
	}
	return out
}

// StringsToTXTRecords parses "key=value" strings into a TXT map.
// Malformed entries without "=" are skipped.
func StringsToTXTRecords(records []string) TXTRecordMap {
	txt := make(TXTRecordMap, len(records))
	for _, r := range records {
		k, v, ok := strings.Cut(r, "=")
		if !ok {
			continue
		}
		txt[k] = v
	}
	return txt
}
