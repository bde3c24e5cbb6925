package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/signalmesh/signalmesh-go/pkg/wire"
)

func TestDispatchInvokesHandlersInOrder(t *testing.T) {
	r := New()

	var order []string
	r.Register(wire.SignalHeartbeat, func(*wire.Signal) { order = append(order, "first") })
	r.Register(wire.SignalHeartbeat, func(*wire.Signal) { order = append(order, "second") })
	r.Register(wire.SignalHeartbeat, func(*wire.Signal) { order = append(order, "third") })

	r.Dispatch(wire.NewSignal(wire.SignalHeartbeat, nil))

	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestDispatchRoutesByType(t *testing.T) {
	r := New()

	var heartbeats, docks int
	r.Register(wire.SignalHeartbeat, func(*wire.Signal) { heartbeats++ })
	r.Register(wire.SignalDockRequest, func(*wire.Signal) { docks++ })

	r.Dispatch(wire.NewSignal(wire.SignalHeartbeat, nil))
	r.Dispatch(wire.NewSignal(wire.SignalHeartbeat, nil))
	r.Dispatch(wire.NewSignal(wire.SignalDockRequest, nil))

	assert.Equal(t, 2, heartbeats)
	assert.Equal(t, 1, docks)
}

func TestDispatchUnregisteredTypeIgnored(t *testing.T) {
	r := New()

	var called bool
	r.Register(wire.SignalHeartbeat, func(*wire.Signal) { called = true })

	// No handler for UNDOCK: must not panic, must not run other handlers.
	r.Dispatch(wire.NewSignal(wire.SignalUndock, nil))
	assert.False(t, called)
}

func TestDispatchPassesSignal(t *testing.T) {
	r := New()

	var got *wire.Signal
	r.Register(wire.SignalHeartbeat, func(sig *wire.Signal) { got = sig })

	sent := wire.NewSignal(wire.SignalHeartbeat, map[string]any{"sender": "test"})
	r.Dispatch(sent)

	assert.Same(t, sent, got)
	assert.Equal(t, "test", got.Payload["sender"])
}

func TestClearHandlers(t *testing.T) {
	r := New()

	var called bool
	r.Register(wire.SignalHeartbeat, func(*wire.Signal) { called = true })
	assert.Equal(t, 1, r.HandlerCount(wire.SignalHeartbeat))

	r.ClearHandlers()
	assert.Zero(t, r.HandlerCount(wire.SignalHeartbeat))

	r.Dispatch(wire.NewSignal(wire.SignalHeartbeat, nil))
	assert.False(t, called)

	// The router remains usable after a clear.
	r.Register(wire.SignalHeartbeat, func(*wire.Signal) { called = true })
	r.Dispatch(wire.NewSignal(wire.SignalHeartbeat, nil))
	assert.True(t, called)
}
