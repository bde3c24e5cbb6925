// Package config loads and validates mesh node configuration.
//
// Configuration is YAML, read once at process start. The Tumbler policy
// and peer table are rebuilt from it on every restart; nothing here is
// persisted back.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalmesh/signalmesh-go/pkg/peers"
)

// Configuration errors.
var (
	// ErrNoListenAddress indicates a missing or unparseable listen address.
	ErrNoListenAddress = errors.New("invalid listen address")

	// ErrBadInterval indicates a non-positive timer interval.
	ErrBadInterval = errors.New("interval must be positive")
)

// Duration wraps time.Duration so YAML accepts Go duration strings
// ("30s", "2m"). Bare integers are taken as nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	case int:
		*d = Duration(v)
		return nil
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the node configuration.
type Config struct {
	// NodeName is the human-readable name this node announces in
	// heartbeats and discovery records.
	NodeName string `yaml:"node_name"`

	// ListenAddress is the UDP address to bind ("host:port"; ":9000"
	// binds all interfaces).
	ListenAddress string `yaml:"listen_address"`

	// HeartbeatInterval is the interval between outbound heartbeats.
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`

	// PeerTimeout is the heartbeat silence after which a peer is
	// considered inactive. Must be at least 3x the largest heartbeat
	// interval used anywhere in the mesh.
	PeerTimeout Duration `yaml:"peer_timeout"`

	// SweepInterval is the interval between peer staleness sweeps.
	SweepInterval Duration `yaml:"sweep_interval"`

	// Seeds are peer addresses to dock with at startup, before any
	// discovery has run.
	Seeds []string `yaml:"seeds"`

	// ExpectedPeers is the roster coverage reporting checks the active
	// peer listing against.
	ExpectedPeers []string `yaml:"expected_peers"`

	// Admission is the Tumbler policy.
	Admission AdmissionConfig `yaml:"admission"`

	// Discovery configures mDNS advertisement and browsing.
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Log configures event logging.
	Log LogConfig `yaml:"log"`
}

// AdmissionConfig is the Tumbler policy section.
type AdmissionConfig struct {
	// AcceptAll bypasses admission checks entirely.
	AcceptAll bool `yaml:"accept_all"`

	// OpenWhenEmpty makes an empty signal whitelist admit everything
	// instead of the default deny.
	OpenWhenEmpty bool `yaml:"open_when_empty"`

	// Signals is the accepted signal name whitelist ("*" admits all
	// names).
	Signals []string `yaml:"signals"`

	// Peers is the accepted peer address whitelist. Empty disables peer
	// filtering.
	Peers []string `yaml:"peers"`
}

// DiscoveryConfig is the mDNS section.
type DiscoveryConfig struct {
	// Enabled turns on mDNS advertisement and browsing.
	Enabled bool `yaml:"enabled"`

	// Interface restricts mDNS to one network interface. Empty means
	// all interfaces.
	Interface string `yaml:"interface"`
}

// LogConfig is the event logging section.
type LogConfig struct {
	// Level is the slog level for console output: debug, info, warn,
	// error.
	Level string `yaml:"level"`

	// File, when set, additionally records events to a CBOR event file.
	File string `yaml:"file"`
}

// Default returns the configuration a node runs with when no file is
// given.
func Default() Config {
	return Config{
		NodeName:          "",
		ListenAddress:     ":9000",
		HeartbeatInterval: Duration(peers.DefaultHeartbeatInterval),
		PeerTimeout:       Duration(peers.DefaultPeerTimeout),
		SweepInterval:     Duration(peers.DefaultSweepInterval),
		Admission: AdmissionConfig{
			Signals: []string{"*"},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads and validates a YAML configuration file. Fields absent from
// the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks address sanity, timer sanity, and the peer-timeout
// invariant.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("%w: empty", ErrNoListenAddress)
	}
	if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrNoListenAddress, c.ListenAddress, err)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat_interval %v", ErrBadInterval, c.HeartbeatInterval.Std())
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("%w: sweep_interval %v", ErrBadInterval, c.SweepInterval.Std())
	}
	if err := peers.ValidateTimings(c.PeerTimeout.Std(), c.HeartbeatInterval.Std()); err != nil {
		return err
	}
	return nil
}
