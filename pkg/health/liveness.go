// Package health builds liveness views over mesh signal traffic.
//
// LivenessView consumes HEARTBEAT dispatches from the signal router and
// maintains a per-sender view for dashboards. Coverage cross-references
// the peer table's active listing against the expected-peer roster from
// configuration.
package health

import (
	"sort"
	"sync"
	"time"

	"github.com/signalmesh/signalmesh-go/pkg/router"
	"github.com/signalmesh/signalmesh-go/pkg/wire"
)

// Beat is the liveness record for one heartbeat sender.
type Beat struct {
	// Sender is the sender name from the heartbeat payload, or the
	// signal Source for legacy JSON encodings.
	Sender string

	// LastBeatAt is the local receive time of the latest heartbeat.
	LastBeatAt time.Time

	// Count is the number of heartbeats seen from this sender.
	Count uint64
}

// LivenessView maintains per-sender heartbeat state. Safe for concurrent
// use.
type LivenessView struct {
	mu    sync.Mutex
	beats map[string]*Beat

	// timeNow returns the current time. Defaults to time.Now.
	// Replaced in tests for deterministic behavior.
	timeNow func() time.Time
}

// NewLivenessView creates an empty view.
func NewLivenessView() *LivenessView {
	return &LivenessView{
		beats:   make(map[string]*Beat),
		timeNow: time.Now,
	}
}

// Attach registers the view's heartbeat handler on a router.
func (v *LivenessView) Attach(r *router.Router) {
	r.Register(wire.SignalHeartbeat, v.Observe)
}

// Observe records one heartbeat signal. Signals without an identifiable
// sender are counted under the empty name.
func (v *LivenessView) Observe(sig *wire.Signal) {
	sender := sig.Source
	if s, ok := sig.Payload["sender"].(string); ok && s != "" {
		sender = s
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	b, ok := v.beats[sender]
	if !ok {
		b = &Beat{Sender: sender}
		v.beats[sender] = b
	}
	b.LastBeatAt = v.timeNow()
	b.Count++
}

// Beats returns a snapshot of all sender records, sorted by sender name.
func (v *LivenessView) Beats() []Beat {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make([]Beat, 0, len(v.beats))
	for _, b := range v.beats {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sender < out[j].Sender })
	return out
}

// Get returns the record for one sender.
func (v *LivenessView) Get(sender string) (Beat, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	b, ok := v.beats[sender]
	if !ok {
		return Beat{}, false
	}
	return *b, true
}
