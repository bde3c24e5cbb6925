package peers

import (
	"sort"
	"sync"
	"time"
)

// Table tracks known peers and their liveness. Safe for concurrent use.
// The table is process-local and rebuilt from scratch on restart; peers
// re-discover each other through fresh heartbeats.
type Table struct {
	mu      sync.Mutex
	peers   map[string]*Peer
	timeout time.Duration

	// timeNow returns the current time. Defaults to time.Now.
	// Replaced in tests for deterministic eviction behavior.
	timeNow func() time.Time
}

// NewTable creates a peer table with the given staleness timeout.
// A non-positive timeout falls back to DefaultPeerTimeout.
func NewTable(timeout time.Duration) *Table {
	if timeout <= 0 {
		timeout = DefaultPeerTimeout
	}
	return &Table{
		peers:   make(map[string]*Peer),
		timeout: timeout,
		timeNow: time.Now,
	}
}

// Timeout returns the configured staleness timeout.
func (t *Table) Timeout() time.Duration {
	return t.timeout
}

// Touch records a DOCK_REQUEST or HEARTBEAT from addr. An unseen address
// creates an active peer; a known address refreshes LastSeenAt and
// returns the peer to active if it had gone inactive. A non-empty name
// updates the stored peer name. Reports whether the peer was newly
// created.
func (t *Table) Touch(addr, name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.timeNow()
	p, ok := t.peers[addr]
	if !ok {
		t.peers[addr] = &Peer{
			Addr:       addr,
			Name:       name,
			LastSeenAt: now,
			Status:     StatusActive,
		}
		return true
	}

	created := p.Status == StatusUnknown
	p.LastSeenAt = now
	p.Status = StatusActive
	if name != "" {
		p.Name = name
	}
	return created
}

// Expect pre-registers an address from the expected-peer roster without
// marking it seen. Coverage reporting distinguishes roster peers that
// never appeared (unknown) from peers that appeared and went silent
// (inactive). No-op for addresses already tracked.
func (t *Table) Expect(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.peers[addr]; !ok {
		t.peers[addr] = &Peer{Addr: addr, Status: StatusUnknown}
	}
}

// MarkInactive transitions a peer to inactive immediately, bypassing the
// timeout. Used for UNDOCK. Reports whether the peer was known.
func (t *Table) MarkInactive(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.peers[addr]
	if !ok {
		return false
	}
	p.Status = StatusInactive
	return true
}

// Get returns a snapshot of the peer at addr.
func (t *Table) Get(addr string) (Peer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.peers[addr]
	if !ok {
		return Peer{}, false
	}
	return *p, true
}

// Sweep marks every active peer silent for longer than the timeout as
// inactive and returns the addresses evicted by this pass. Eviction is
// not an error; evicted peers rejoin by simply heartbeating again.
func (t *Table) Sweep() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.timeNow().Add(-t.timeout)
	var evicted []string
	for addr, p := range t.peers {
		if p.Status == StatusActive && p.LastSeenAt.Before(cutoff) {
			p.Status = StatusInactive
			evicted = append(evicted, addr)
		}
	}
	sort.Strings(evicted)
	return evicted
}

// ActivePeers returns snapshots of all active peers, sorted by address.
// Inactive and unknown peers are excluded; this is the listing liveness
// dashboards and coverage reporting consume.
func (t *Table) ActivePeers() []Peer {
	t.mu.Lock()
	defer t.mu.Unlock()

	var active []Peer
	for _, p := range t.peers {
		if p.Status == StatusActive {
			active = append(active, *p)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Addr < active[j].Addr })
	return active
}

// AllPeers returns snapshots of every tracked peer, sorted by address.
func (t *Table) AllPeers() []Peer {
	t.mu.Lock()
	defer t.mu.Unlock()

	all := make([]Peer, 0, len(t.peers))
	for _, p := range t.peers {
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Addr < all[j].Addr })
	return all
}

// Len returns the number of tracked peers in any state.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}

// ActiveCount returns the number of active peers.
func (t *Table) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, p := range t.peers {
		if p.Status == StatusActive {
			n++
		}
	}
	return n
}
