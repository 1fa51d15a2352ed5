package space

import "sync/atomic"

// guard is a fail-fast borrow checker: one exclusive holder or any number
// of shared holders, never both. It does not block; a conflicting borrow
// returns ErrConcurrentAccess immediately. In particular a listener that
// re-enters a mutating method during notification delivery is rejected
// instead of corrupting state.
type guard struct {
	// state: 0 free, -1 exclusively held, n>0 held by n shared borrowers.
	state atomic.Int32
}

func (g *guard) lockExclusive() error {
	if !g.state.CompareAndSwap(0, -1) {
		return ErrConcurrentAccess
	}
	return nil
}

func (g *guard) unlockExclusive() {
	g.state.Store(0)
}

func (g *guard) lockShared() error {
	for {
		s := g.state.Load()
		if s < 0 {
			return ErrConcurrentAccess
		}
		if g.state.CompareAndSwap(s, s+1) {
			return nil
		}
	}
}

func (g *guard) unlockShared() {
	g.state.Add(-1)
}
