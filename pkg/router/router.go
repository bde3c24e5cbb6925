// Package router dispatches decoded, admitted signals to registered
// handlers by signal type.
package router

import (
	"sync"

	"github.com/signalmesh/signalmesh-go/pkg/wire"
)

// Handler processes one dispatched signal. Handlers run synchronously on
// the dispatching goroutine and should complete quickly.
type Handler func(sig *wire.Signal)

// Router maps signal types to ordered handler lists. Safe for concurrent
// use, though registration normally happens once at startup.
type Router struct {
	mu       sync.RWMutex
	handlers map[wire.SignalType][]Handler
}

// New creates an empty router.
func New() *Router {
	return &Router{
		handlers: make(map[wire.SignalType][]Handler),
	}
}

// Register appends a handler for a signal type. Handlers for the same
// type run in registration order.
func (r *Router) Register(t wire.SignalType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = append(r.handlers[t], h)
}

// Dispatch invokes every handler registered for the signal's type, in
// registration order. Types with no registered handler are silently
// ignored.
func (r *Router) Dispatch(sig *wire.Signal) {
	r.mu.RLock()
	handlers := r.handlers[sig.Type]
	r.mu.RUnlock()

	for _, h := range handlers {
		h(sig)
	}
}

// HandlerCount returns the number of handlers registered for a type.
func (r *Router) HandlerCount(t wire.SignalType) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[t])
}

// ClearHandlers removes every registration. Called on shutdown so that
// handler closures and their captured state do not outlive the mesh.
func (r *Router) ClearHandlers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[wire.SignalType][]Handler)
}
