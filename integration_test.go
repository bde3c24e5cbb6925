package signalmesh_test

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalmesh/signalmesh-go/pkg/health"
	"github.com/signalmesh/signalmesh-go/pkg/log"
	"github.com/signalmesh/signalmesh-go/pkg/mesh"
	"github.com/signalmesh/signalmesh-go/pkg/peers"
	"github.com/signalmesh/signalmesh-go/pkg/router"
	"github.com/signalmesh/signalmesh-go/pkg/tumbler"
	"github.com/signalmesh/signalmesh-go/pkg/wire"
)

// Short intervals for mesh formation tests; peer timeout stays at 3x
// the heartbeat interval.
const (
	e2eHeartbeat = 50 * time.Millisecond
	e2eTimeout   = 150 * time.Millisecond
	e2eSweep     = 25 * time.Millisecond
)

// node bundles one mesh node's components for integration tests.
type node struct {
	transport *mesh.Transport
	router    *router.Router
	table     *peers.Table
	tumbler   *tumbler.Tumbler
}

func startNode(t *testing.T, name string, tum *tumbler.Tumbler, logger log.Logger, seeds ...string) *node {
	t.Helper()

	rtr := router.New()
	table := peers.NewTable(e2eTimeout)
	transport, err := mesh.New(mesh.Config{
		NodeName:          name,
		ListenAddress:     "127.0.0.1:0",
		HeartbeatInterval: e2eHeartbeat,
		SweepInterval:     e2eSweep,
		Seeds:             seeds,
		Logger:            logger,
	}, tum, rtr, table)
	require.NoError(t, err)
	require.NoError(t, transport.Start(context.Background()))
	t.Cleanup(transport.Stop)

	return &node{transport: transport, router: rtr, table: table, tumbler: tum}
}

func (n *node) addr() string {
	return n.transport.LocalAddr().String()
}

func dialUDP(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.Dial("udp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// TestE2E_MeshFormation verifies that three nodes seeded in a line form
// a mesh where every node sees its neighbors as active.
func TestE2E_MeshFormation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	a := startNode(t, "alpha", tumbler.New(tumbler.WithAcceptAll()), nil)
	b := startNode(t, "beta", tumbler.New(tumbler.WithAcceptAll()), nil, a.addr())
	c := startNode(t, "gamma", tumbler.New(tumbler.WithAcceptAll()), nil, a.addr(), b.addr())

	// alpha learns both joiners through their dock requests; the joiners
	// learn whoever heartbeats back.
	require.Eventually(t, func() bool {
		return a.table.ActiveCount() == 2 &&
			b.table.ActiveCount() >= 1 &&
			c.table.ActiveCount() == 2
	}, 5*time.Second, 20*time.Millisecond)

	names := make(map[string]bool)
	for _, p := range a.table.ActivePeers() {
		names[p.Name] = true
	}
	assert.True(t, names["beta"], "alpha should know beta by name")
	assert.True(t, names["gamma"], "alpha should know gamma by name")
}

// TestE2E_AdmissionPolicy verifies that a node whitelisting only
// heartbeats refuses docking but still sees heartbeat traffic.
func TestE2E_AdmissionPolicy(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	strict := tumbler.New()
	strict.AddSignal("HEARTBEAT")
	a := startNode(t, "gatekeeper", strict, nil)
	startNode(t, "joiner", tumbler.New(tumbler.WithAcceptAll()), nil, a.addr())

	// The dock request is refused, but the joiner keeps heartbeating its
	// seed, and heartbeats are admitted.
	require.Eventually(t, func() bool {
		return a.table.ActiveCount() == 1
	}, 5*time.Second, 20*time.Millisecond)

	stats := a.tumbler.GetStats()
	assert.NotZero(t, stats.Rejected, "dock request should have been rejected")
	assert.NotZero(t, stats.Accepted, "heartbeats should have been accepted")
}

// TestE2E_EvictionAfterShutdown verifies that a stopped node is swept
// from its peers' tables once its heartbeats stop.
func TestE2E_EvictionAfterShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	a := startNode(t, "survivor", tumbler.New(tumbler.WithAcceptAll()), nil)
	b := startNode(t, "casualty", tumbler.New(tumbler.WithAcceptAll()), nil, a.addr())

	require.Eventually(t, func() bool {
		return a.table.ActiveCount() == 1
	}, 5*time.Second, 20*time.Millisecond)

	// Hard stop without UNDOCK: the sweeper alone must notice the
	// silence and drop the peer from the active listing.
	b.transport.Stop()

	require.Eventually(t, func() bool {
		return a.table.ActiveCount() == 0
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, a.table.Len(), "swept peer stays tracked as inactive")
}

// TestE2E_LivenessAndCoverage verifies the health views over live mesh
// traffic.
func TestE2E_LivenessAndCoverage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	a := startNode(t, "hub", tumbler.New(tumbler.WithAcceptAll()), nil)

	liveness := health.NewLivenessView()
	liveness.Attach(a.router)

	b := startNode(t, "spoke", tumbler.New(tumbler.WithAcceptAll()), nil, a.addr())

	require.Eventually(t, func() bool {
		beat, ok := liveness.Get("spoke")
		return ok && beat.Count >= 2
	}, 5*time.Second, 20*time.Millisecond)

	report := health.Coverage(a.table, []string{b.addr()})
	assert.True(t, report.Covered())
	assert.Empty(t, report.Missing)

	report = health.Coverage(a.table, []string{b.addr(), "203.0.113.1:9000"})
	assert.False(t, report.Covered())
	assert.Equal(t, []string{"203.0.113.1:9000"}, report.Missing)
}

// TestE2E_EventLogRecording verifies that mesh traffic lands in a CBOR
// event file readable by the log reader.
func TestE2E_EventLogRecording(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	path := filepath.Join(t.TempDir(), "hub.slog")
	logger, err := log.NewFileLogger(path)
	require.NoError(t, err)

	a := startNode(t, "hub", tumbler.New(tumbler.WithAcceptAll()), logger)
	startNode(t, "spoke", tumbler.New(tumbler.WithAcceptAll()), nil, a.addr())

	require.Eventually(t, func() bool {
		return a.table.ActiveCount() == 1
	}, 5*time.Second, 20*time.Millisecond)

	a.transport.Stop()
	require.NoError(t, logger.Close())

	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	sawDock := false
	sawAdmission := false
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if event.Signal != nil && event.Signal.Name == wire.SignalDockRequest.String() {
			sawDock = true
		}
		if event.Admission != nil && event.Admission.Accepted {
			sawAdmission = true
		}
	}
	assert.True(t, sawDock, "expected a dock request signal event")
	assert.True(t, sawAdmission, "expected an accepted admission event")
}

// TestE2E_MixedWireFormats verifies that a mesh node built around the
// binary codec still admits peers speaking the legacy JSON encodings.
func TestE2E_MixedWireFormats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	a := startNode(t, "modern", tumbler.New(tumbler.WithAcceptAll()), nil)

	conn := dialUDP(t, a.addr())

	// A legacy node heartbeats in Format B.
	_, err := conn.Write([]byte(`{"type":"HEARTBEAT","source":"antique","payload":{"sender":"antique"},"timestamp":1700000000}`))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		active := a.table.ActivePeers()
		return len(active) == 1 && active[0].Name == "antique"
	}, 5*time.Second, 20*time.Millisecond)
}
