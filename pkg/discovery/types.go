// Package discovery advertises and browses mesh nodes over mDNS.
//
// Discovery is an optional complement to the mesh's heartbeat-based
// membership: it gives a freshly started node addresses to dock with
// before any seed has heartbeated. The mesh itself never depends on it.
package discovery

import (
	"errors"
	"time"
)

// Service constants for mDNS.
const (
	// ServiceTypeNode is the mDNS service type mesh nodes advertise.
	ServiceTypeNode = "_sigmesh._udp"

	// Domain is the mDNS domain.
	Domain = "local"
)

// TXT record keys.
const (
	// TXTKeyNodeName is the node's announced name.
	TXTKeyNodeName = "NN"

	// TXTKeyNodeID is the node's instance fingerprint (16 hex chars).
	TXTKeyNodeID = "NI"

	// TXTKeyVersion is the wire protocol version the node speaks.
	TXTKeyVersion = "PV"
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for FindAll.
	BrowseTimeout = 10 * time.Second

	// DefaultTTL is the DNS record TTL for advertisements.
	DefaultTTL = 120 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// FingerprintLength is the node fingerprint length
	// (16 hex chars = 64 bits).
	FingerprintLength = 16
)

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required TXT field")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInvalidFingerprint  = errors.New("invalid node fingerprint")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("node not found")
)

// NodeInfo is the identity a node advertises.
type NodeInfo struct {
	// Name is the human-readable node name.
	Name string

	// NodeID is the node instance fingerprint.
	NodeID string

	// Port is the node's UDP signal port.
	Port uint16

	// Version is the wire protocol version.
	Version uint16
}

// NodeService is one discovered mesh node.
type NodeService struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the mDNS hostname.
	Host string

	// Port is the node's UDP signal port.
	Port uint16

	// Addresses are the node's IP addresses, possibly from several
	// interfaces.
	Addresses []string

	// Info is the decoded TXT identity.
	Info NodeInfo
}
