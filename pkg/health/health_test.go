package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalmesh/signalmesh-go/pkg/peers"
	"github.com/signalmesh/signalmesh-go/pkg/router"
	"github.com/signalmesh/signalmesh-go/pkg/wire"
)

func TestLivenessViewObservesHeartbeats(t *testing.T) {
	view := NewLivenessView()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	view.timeNow = func() time.Time { return now }

	r := router.New()
	view.Attach(r)

	r.Dispatch(wire.NewSignal(wire.SignalHeartbeat, map[string]any{"sender": "analyzer"}))
	r.Dispatch(wire.NewSignal(wire.SignalHeartbeat, map[string]any{"sender": "exporter"}))

	now = now.Add(30 * time.Second)
	r.Dispatch(wire.NewSignal(wire.SignalHeartbeat, map[string]any{"sender": "analyzer"}))

	// Heartbeats routed through the view, other signals ignored.
	r.Dispatch(wire.NewSignal(wire.SignalDockRequest, map[string]any{"sender": "joiner"}))

	beats := view.Beats()
	require.Len(t, beats, 2)
	assert.Equal(t, "analyzer", beats[0].Sender)
	assert.Equal(t, uint64(2), beats[0].Count)
	assert.Equal(t, now, beats[0].LastBeatAt)
	assert.Equal(t, "exporter", beats[1].Sender)
	assert.Equal(t, uint64(1), beats[1].Count)

	b, ok := view.Get("analyzer")
	require.True(t, ok)
	assert.Equal(t, uint64(2), b.Count)
	_, ok = view.Get("joiner")
	assert.False(t, ok)
}

func TestLivenessViewFallsBackToSource(t *testing.T) {
	view := NewLivenessView()

	// Legacy JSON signals carry the sender in Source, not the payload.
	sig := &wire.Signal{
		Type:    wire.SignalHeartbeat,
		Source:  "legacy-node",
		Payload: map[string]any{},
	}
	view.Observe(sig)

	_, ok := view.Get("legacy-node")
	assert.True(t, ok)
}

func TestCoverage(t *testing.T) {
	table := peers.NewTable(peers.DefaultPeerTimeout)
	table.Touch("10.0.0.1:9000", "a")
	table.Touch("10.0.0.2:9000", "b")
	table.Touch("10.0.0.9:9000", "stray")
	table.Touch("10.0.0.3:9000", "c")
	table.MarkInactive("10.0.0.3:9000")

	roster := []string{"10.0.0.1:9000", "10.0.0.2:9000", "10.0.0.3:9000", "10.0.0.4:9000"}
	report := Coverage(table, roster)

	assert.Equal(t, 4, report.Expected)
	assert.Equal(t, []string{"10.0.0.1:9000", "10.0.0.2:9000"}, report.Present)
	// Inactive and never-seen roster members are both missing.
	assert.Equal(t, []string{"10.0.0.3:9000", "10.0.0.4:9000"}, report.Missing)
	assert.Equal(t, []string{"10.0.0.9:9000"}, report.Unexpected)
	assert.False(t, report.Covered())
}

func TestCoverageFullRoster(t *testing.T) {
	table := peers.NewTable(peers.DefaultPeerTimeout)
	table.Touch("10.0.0.1:9000", "a")

	report := Coverage(table, []string{"10.0.0.1:9000"})
	assert.True(t, report.Covered())
	assert.Empty(t, report.Unexpected)
}
