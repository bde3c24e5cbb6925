package mesh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/signalmesh/signalmesh-go/pkg/log"
	"github.com/signalmesh/signalmesh-go/pkg/peers"
	"github.com/signalmesh/signalmesh-go/pkg/router"
	"github.com/signalmesh/signalmesh-go/pkg/tumbler"
	"github.com/signalmesh/signalmesh-go/pkg/version"
	"github.com/signalmesh/signalmesh-go/pkg/wire"
)

// maxDatagramSize is the receive buffer size. Larger datagrams are
// truncated by the kernel and will fail decoding.
const maxDatagramSize = 64 * 1024

// ErrNotRunning indicates a send attempted while the transport is
// stopped.
var ErrNotRunning = errors.New("mesh transport not running")

// Config configures a mesh transport.
type Config struct {
	// NodeName is announced in heartbeats and dock requests.
	NodeName string

	// ListenAddress is the UDP address to bind (e.g. ":9000").
	ListenAddress string

	// HeartbeatInterval is the interval between outbound heartbeats.
	// Default: peers.DefaultHeartbeatInterval.
	HeartbeatInterval time.Duration

	// SweepInterval is the interval between peer staleness sweeps.
	// Default: peers.DefaultSweepInterval.
	SweepInterval time.Duration

	// Seeds are peer addresses docked with at startup and always
	// included in broadcasts.
	Seeds []string

	// Logger receives mesh events (optional).
	Logger log.Logger
}

// Transport owns one bound datagram endpoint and the pipeline behind it.
type Transport struct {
	config Config

	// nodeID identifies this transport instance in log events and
	// heartbeat payloads. Fresh per construction.
	nodeID uuid.UUID

	tumbler *tumbler.Tumbler
	router  *router.Router
	table   *peers.Table
	chain   *wire.Chain
	logger  log.Logger

	mu      sync.Mutex
	conn    *net.UDPConn
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool

	// Counters.
	received       atomic.Uint64
	dispatched     atomic.Uint64
	decodeFailures atomic.Uint64
	rejected       atomic.Uint64
	sent           atomic.Uint64
}

// New creates a transport over caller-owned policy and state components.
func New(config Config, tum *tumbler.Tumbler, rtr *router.Router, table *peers.Table) (*Transport, error) {
	if config.ListenAddress == "" {
		return nil, errors.New("listen address is required")
	}
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = peers.DefaultHeartbeatInterval
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = peers.DefaultSweepInterval
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}
	if err := peers.ValidateTimings(table.Timeout(), config.HeartbeatInterval); err != nil {
		return nil, err
	}

	return &Transport{
		config:  config,
		nodeID:  uuid.New(),
		tumbler: tum,
		router:  rtr,
		table:   table,
		chain:   wire.NewChain(),
		logger:  config.Logger,
	}, nil
}

// NodeID returns the transport's instance ID.
func (t *Transport) NodeID() uuid.UUID {
	return t.nodeID
}

// LocalAddr returns the bound address, or nil while stopped.
func (t *Transport) LocalAddr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// Start binds the socket and launches the receive loop, heartbeat
// emitter, and staleness sweeper. Idempotent: a second Start on a
// running transport is a no-op. A bind failure is the sole fatal
// condition of the mesh and aborts startup.
func (t *Transport) Start(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return nil
	}

	laddr, err := net.ResolveUDPAddr("udp", t.config.ListenAddress)
	if err != nil {
		t.running.Store(false)
		return fmt.Errorf("invalid listen address %q: %w", t.config.ListenAddress, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		t.running.Store(false)
		return fmt.Errorf("failed to bind %q: %w", t.config.ListenAddress, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.conn = conn
	t.cancel = cancel
	t.mu.Unlock()

	t.wg.Add(3)
	go t.readLoop(conn)
	go t.heartbeatLoop(runCtx)
	go t.sweepLoop(runCtx)

	// Announce ourselves to the seeds before the first heartbeat tick.
	for _, seed := range t.config.Seeds {
		_ = t.Dock(seed)
	}
	return nil
}

// Stop cancels the background tasks, releases the socket, and clears
// the handler registry. Idempotent and safe to call before Start.
func (t *Transport) Stop() {
	if !t.running.CompareAndSwap(true, false) {
		return
	}

	t.mu.Lock()
	cancel := t.cancel
	conn := t.conn
	t.cancel = nil
	t.conn = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	t.wg.Wait()

	// Handler closures must not outlive the mesh.
	t.router.ClearHandlers()
}

// Dock sends a DOCK_REQUEST to a peer address.
func (t *Transport) Dock(addr string) error {
	return t.SendTo(addr, wire.SignalDockRequest, map[string]any{
		"sender":  t.config.NodeName,
		"node_id": t.nodeID.String(),
		"release": version.Release,
	})
}

// Undock announces departure to every known target and stops nothing
// else; callers typically follow with Stop.
func (t *Transport) Undock() {
	_, _ = t.Broadcast(wire.SignalUndock, map[string]any{
		"sender": t.config.NodeName,
	})
}

// SendTo encodes and sends one signal to a peer address.
func (t *Transport) SendTo(addr string, sigType wire.SignalType, payload map[string]any) error {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("invalid peer address %q: %w", addr, err)
	}

	data, err := wire.Encode(sigType, payload)
	if err != nil {
		return err
	}

	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotRunning
	}

	if _, err := conn.WriteToUDP(data, raddr); err != nil {
		t.logError(err, "send")
		return err
	}
	t.sent.Add(1)
	t.logSignal(log.DirectionOut, addr, sigType, "binary", len(data))
	return nil
}

// Broadcast encodes a signal once and sends it to every active peer and
// every configured seed. Returns the number of targets reached.
func (t *Transport) Broadcast(sigType wire.SignalType, payload map[string]any) (int, error) {
	data, err := wire.Encode(sigType, payload)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return 0, ErrNotRunning
	}

	targets := make(map[string]struct{})
	for _, p := range t.table.ActivePeers() {
		targets[p.Addr] = struct{}{}
	}
	for _, seed := range t.config.Seeds {
		targets[seed] = struct{}{}
	}

	reached := 0
	for addr := range targets {
		raddr, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			continue
		}
		if _, err := conn.WriteToUDP(data, raddr); err != nil {
			t.logError(err, "send")
			continue
		}
		reached++
		t.sent.Add(1)
		t.logSignal(log.DirectionOut, addr, sigType, "binary", len(data))
	}
	return reached, nil
}

// readLoop processes inbound datagrams until the socket closes. Each
// datagram's decode -> filter -> route -> table-update sequence completes
// before the next is read, so the Tumbler and peer table see no
// concurrent mutation from traffic.
func (t *Transport) readLoop(conn *net.UDPConn) {
	defer t.wg.Done()

	buf := make([]byte, maxDatagramSize)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			// Socket closed by Stop, or unrecoverable.
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		t.handleDatagram(data, raddr.String())
	}
}

// handleDatagram runs the receive pipeline for one datagram.
func (t *Transport) handleDatagram(data []byte, addr string) {
	t.received.Add(1)

	sig, format, err := t.chain.DecodeNamed(data)
	if err != nil {
		t.decodeFailures.Add(1)
		t.logError(err, "decode")
		return
	}

	name := sig.Type.String()
	if !t.tumbler.ShouldAccept(name, addr) {
		t.rejected.Add(1)
		t.logAdmission(addr, name, false)
		// Policy denies this joiner: complete the handshake negatively.
		if sig.Type == wire.SignalDockRequest {
			_ = t.SendTo(addr, wire.SignalDockReject, map[string]any{
				"sender": t.config.NodeName,
			})
		}
		return
	}
	t.logAdmission(addr, name, true)
	t.logSignal(log.DirectionIn, addr, sig.Type, format, len(data))

	t.updateMembership(sig, addr)

	t.router.Dispatch(sig)
	t.dispatched.Add(1)
}

// updateMembership applies dock/heartbeat/undock semantics to the peer
// table.
func (t *Transport) updateMembership(sig *wire.Signal, addr string) {
	switch sig.Type {
	case wire.SignalDockRequest:
		t.table.Touch(addr, senderName(sig))
		t.logPeer(addr, peers.StatusActive, "dock")
		// Complete the join handshake.
		_ = t.SendTo(addr, wire.SignalDockApprove, map[string]any{
			"sender":  t.config.NodeName,
			"release": version.Release,
		})

	case wire.SignalHeartbeat:
		t.table.Touch(addr, senderName(sig))

	case wire.SignalUndock:
		if t.table.MarkInactive(addr) {
			t.logPeer(addr, peers.StatusInactive, "undock")
		}
	}
}

// heartbeatLoop emits heartbeats until cancelled.
func (t *Transport) heartbeatLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.HeartbeatInterval)
	defer ticker.Stop()

	payload := map[string]any{
		"sender":  t.config.NodeName,
		"node_id": t.nodeID.String(),
	}

	// Initial heartbeat before the first tick.
	_, _ = t.Broadcast(wire.SignalHeartbeat, payload)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = t.Broadcast(wire.SignalHeartbeat, payload)
		}
	}
}

// sweepLoop evicts stale peers until cancelled.
func (t *Transport) sweepLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, addr := range t.table.Sweep() {
				t.logPeer(addr, peers.StatusInactive, "sweep")
			}
		}
	}
}

// Stats is a point-in-time snapshot of transport counters.
type Stats struct {
	Received       uint64
	Dispatched     uint64
	DecodeFailures uint64
	Rejected       uint64
	Sent           uint64
}

// GetStats returns a snapshot of the transport counters.
func (t *Transport) GetStats() Stats {
	return Stats{
		Received:       t.received.Load(),
		Dispatched:     t.dispatched.Load(),
		DecodeFailures: t.decodeFailures.Load(),
		Rejected:       t.rejected.Load(),
		Sent:           t.sent.Load(),
	}
}

// senderName extracts the sender name from a signal's payload, falling
// back to the Source carried by legacy JSON encodings.
func senderName(sig *wire.Signal) string {
	if s, ok := sig.Payload["sender"].(string); ok && s != "" {
		return s
	}
	return sig.Source
}

func (t *Transport) logSignal(dir log.Direction, addr string, sigType wire.SignalType, format string, size int) {
	t.logger.Log(log.Event{
		Timestamp: time.Now(),
		NodeID:    t.nodeID.String(),
		Direction: dir,
		Category:  log.CategorySignal,
		PeerAddr:  addr,
		Signal: &log.SignalEvent{
			Type:   uint16(sigType),
			Name:   sigType.String(),
			Format: format,
			Size:   size,
		},
	})
}

func (t *Transport) logAdmission(addr, signalName string, accepted bool) {
	t.logger.Log(log.Event{
		Timestamp: time.Now(),
		NodeID:    t.nodeID.String(),
		Direction: log.DirectionIn,
		Category:  log.CategoryAdmission,
		PeerAddr:  addr,
		Admission: &log.AdmissionEvent{
			Signal:   signalName,
			Accepted: accepted,
		},
	})
}

func (t *Transport) logPeer(addr string, status peers.Status, reason string) {
	t.logger.Log(log.Event{
		Timestamp: time.Now(),
		NodeID:    t.nodeID.String(),
		Category:  log.CategoryPeer,
		PeerAddr:  addr,
		Peer: &log.PeerEvent{
			Addr:      addr,
			NewStatus: status.String(),
			Reason:    reason,
		},
	})
}

func (t *Transport) logError(err error, context string) {
	t.logger.Log(log.Event{
		Timestamp: time.Now(),
		NodeID:    t.nodeID.String(),
		Direction: log.DirectionIn,
		Category:  log.CategoryError,
		Error: &log.ErrorEvent{
			Message: err.Error(),
			Context: context,
		},
	})
}
