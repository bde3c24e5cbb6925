// Package tumbler implements admission control for inbound mesh signals.
//
// A Tumbler decides whether a signal is accepted by signal-name and
// peer-address policy. Rejection is routine policy, not an error: callers
// observe it only through the running counters.
package tumbler

import (
	"sync"
)

// Wildcard in the accepted-signal set admits every signal name.
const Wildcard = "*"

// Option configures a Tumbler at construction time.
type Option func(*Tumbler)

// WithOpenWhenEmpty makes an empty signal whitelist admit every signal
// name instead of rejecting everything. The default is deny: an empty
// whitelist with AcceptAll unset rejects all signals.
func WithOpenWhenEmpty() Option {
	return func(t *Tumbler) {
		t.openWhenEmpty = true
	}
}

// WithAcceptAll bypasses both the signal and peer checks entirely.
func WithAcceptAll() Option {
	return func(t *Tumbler) {
		t.acceptAll = true
	}
}

// Tumbler is the admission filter for inbound signals. Safe for
// concurrent use; policy is runtime-mutable and never persisted.
type Tumbler struct {
	mu sync.Mutex

	acceptAll     bool
	openWhenEmpty bool

	signals map[string]struct{}
	peers   map[string]struct{}

	accepted  uint64
	rejected  uint64
	perSignal map[string]uint64
}

// New creates a Tumbler with empty signal and peer sets.
//
// With no options the Tumbler rejects everything: admission must be
// opened explicitly via AddSignal/the wildcard, WithOpenWhenEmpty, or
// WithAcceptAll. Independent ancestors of this component disagreed on
// the empty-whitelist default; deny was chosen here so that a
// misconfigured service fails closed.
func New(opts ...Option) *Tumbler {
	t := &Tumbler{
		signals:   make(map[string]struct{}),
		peers:     make(map[string]struct{}),
		perSignal: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ShouldAccept reports whether a signal with the given name from the
// given peer address passes the admission policy, and updates the
// running counters.
//
// Evaluation order: AcceptAll short-circuits everything. Otherwise the
// signal name must pass the whitelist (wildcard admits all names). Then,
// when a peer whitelist is configured, the address must be present and a
// member: an empty address fails the check, excluding unidentifiable
// senders whenever peers are being filtered.
func (t *Tumbler) ShouldAccept(signalName, peerAddr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	ok := t.evaluate(signalName, peerAddr)
	if ok {
		t.accepted++
		t.perSignal[signalName]++
	} else {
		t.rejected++
	}
	return ok
}

// evaluate applies the policy without touching counters.
// Caller holds t.mu.
func (t *Tumbler) evaluate(signalName, peerAddr string) bool {
	if t.acceptAll {
		return true
	}

	if _, wild := t.signals[Wildcard]; !wild {
		if len(t.signals) == 0 {
			if !t.openWhenEmpty {
				return false
			}
		} else if _, ok := t.signals[signalName]; !ok {
			return false
		}
	}

	if len(t.peers) > 0 {
		if peerAddr == "" {
			return false
		}
		if _, ok := t.peers[peerAddr]; !ok {
			return false
		}
	}

	return true
}

// AddSignal adds a signal name to the whitelist. Idempotent.
func (t *Tumbler) AddSignal(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.signals[name] = struct{}{}
}

// RemoveSignal removes a signal name from the whitelist. Safe to call
// for absent names.
func (t *Tumbler) RemoveSignal(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.signals, name)
}

// AddPeer adds a peer address to the whitelist. Idempotent.
func (t *Tumbler) AddPeer(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.peers[addr] = struct{}{}
}

// RemovePeer removes a peer address from the whitelist. Safe to call
// for absent addresses.
func (t *Tumbler) RemovePeer(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.peers, addr)
}

// SetAcceptAll toggles unconditional admission at runtime.
func (t *Tumbler) SetAcceptAll(acceptAll bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.acceptAll = acceptAll
}

// Signals returns the configured signal whitelist.
func (t *Tumbler) Signals() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.signals))
	for name := range t.signals {
		names = append(names, name)
	}
	return names
}

// Peers returns the configured peer whitelist.
func (t *Tumbler) Peers() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	addrs := make([]string, 0, len(t.peers))
	for addr := range t.peers {
		addrs = append(addrs, addr)
	}
	return addrs
}

// Stats is a point-in-time snapshot of admission counters.
type Stats struct {
	// Accepted is the total number of admitted signals.
	Accepted uint64

	// Rejected is the total number of denied signals.
	Rejected uint64

	// PerSignal counts admitted signals by name. The values sum to
	// Accepted.
	PerSignal map[string]uint64
}

// GetStats returns a snapshot of the running counters.
func (t *Tumbler) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	perSignal := make(map[string]uint64, len(t.perSignal))
	for name, n := range t.perSignal {
		perSignal[name] = n
	}
	return Stats{
		Accepted:  t.accepted,
		Rejected:  t.rejected,
		PerSignal: perSignal,
	}
}

// ResetStats zeroes all counters. Policy sets are untouched.
func (t *Tumbler) ResetStats() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accepted = 0
	t.rejected = 0
	t.perSignal = make(map[string]uint64)
}
