// Package listen provides synchronous in-process change notification with
// liveness-checked subscribers: a listener whose Alive method reports false
// is pruned the next time a notification is delivered, so subscribers can be
// dropped independently of the notifier's lifetime.
package listen

import "sync/atomic"

// Listener receives change messages of type T. Receive is called
// synchronously on the notifying goroutine and must not re-enter the
// notifying store.
type Listener[T any] interface {
	Receive(msg T)
	Alive() bool
}

// Notifier delivers messages to a set of listeners. The zero value is ready
// to use. Not safe for concurrent use; it belongs to whoever owns the store.
type Notifier[T any] struct {
	listeners []Listener[T]
}

func (n *Notifier[T]) Listen(l Listener[T]) {
	if l == nil || !l.Alive() {
		return
	}
	n.listeners = append(n.listeners, l)
}

// Notify delivers msg to every live listener, dropping dead ones in place.
func (n *Notifier[T]) Notify(msg T) {
	kept := n.listeners[:0]
	for _, l := range n.listeners {
		if !l.Alive() {
			continue
		}
		l.Receive(msg)
		kept = append(kept, l)
	}
	// Clear the tail so dropped listeners are not retained.
	for i := len(kept); i < len(n.listeners); i++ {
		n.listeners[i] = nil
	}
	n.listeners = kept
}

func (n *Notifier[T]) Count() int {
	alive := 0
	for _, l := range n.listeners {
		if l.Alive() {
			alive++
		}
	}
	return alive
}

// Gate severs a listener registration. Closing the gate makes every
// listener wrapped with it report dead, without the notifier having to know.
type Gate struct {
	closed atomic.Bool
}

func (g *Gate) Close() { g.closed.Store(true) }

func (g *Gate) IsOpen() bool { return !g.closed.Load() }

type gated[T any] struct {
	gate  *Gate
	inner Listener[T]
}

// WithGate wraps l so that it dies when gate is closed.
func WithGate[T any](gate *Gate, l Listener[T]) Listener[T] {
	return gated[T]{gate: gate, inner: l}
}

func (g gated[T]) Receive(msg T) {
	if g.gate.IsOpen() {
		g.inner.Receive(msg)
	}
}

func (g gated[T]) Alive() bool { return g.gate.IsOpen() && g.inner.Alive() }

// Funcs adapts plain functions to the Listener interface.
type Funcs[T any] struct {
	ReceiveFn func(T)
	AliveFn   func() bool
}

func (f Funcs[T]) Receive(msg T) {
	if f.ReceiveFn != nil {
		f.ReceiveFn(msg)
	}
}

func (f Funcs[T]) Alive() bool {
	if f.AliveFn == nil {
		return true
	}
	return f.AliveFn()
}

// Sink collects received messages; for tests.
type Sink[T any] struct {
	Msgs []T
}

func (s *Sink[T]) Receive(msg T) { s.Msgs = append(s.Msgs, msg) }

func (s *Sink[T]) Alive() bool { return true }

// Drain returns and clears the collected messages.
func (s *Sink[T]) Drain() []T {
	out := s.Msgs
	s.Msgs = nil
	return out
}
