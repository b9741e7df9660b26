// Package sigguard keeps the shell immune to keyboard interrupts except
// while it is blocked reading a line.
//
// SIGINT is caught rather than ignored so children, whose caught signals
// revert to the default on exec, can still be interrupted. SIGTSTP is
// ignored outright and children inherit that.
package sigguard

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Guard tracks whether an interrupt should abandon the current read.
type Guard struct {
	mu            sync.Mutex
	interruptible bool
	interrupted   bool

	incoming chan os.Signal
	done     chan struct{}
	once     sync.Once
}

// New installs the shell's signal dispositions and starts draining SIGINT.
func New() *Guard {
	g := NewDetached()
	signal.Ignore(syscall.SIGTSTP)
	signal.Notify(g.incoming, syscall.SIGINT)
	go g.loop()
	return g
}

// NewDetached returns a guard that isn't registered for any OS signals;
// interrupts are only seen through Deliver.
func NewDetached() *Guard {
	return &Guard{
		incoming: make(chan os.Signal, 1),
		done:     make(chan struct{}),
	}
}

func (g *Guard) loop() {
	for {
		select {
		case sig := <-g.incoming:
			g.Deliver(sig)
		case <-g.done:
			return
		}
	}
}

// Deliver handles one signal. An interrupt is only remembered while a scope
// is open, otherwise it's dropped.
func (g *Guard) Deliver(sig os.Signal) {
	if sig != syscall.SIGINT {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.interruptible {
		g.interrupted = true
	}
}

// Interruptible switches the guard into the interruptible state until the
// returned scope is released.
func (g *Guard) Interruptible() *Scope {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.interruptible = true
	g.interrupted = false
	return &Scope{guard: g}
}

// Close stops watching for signals. Dispositions stay as they are.
func (g *Guard) Close() error {
	g.once.Do(func() {
		signal.Stop(g.incoming)
		close(g.done)
	})
	return nil
}

// Scope is one interruptible section, usually a single line read.
type Scope struct {
	guard    *Guard
	released bool
	result   bool
}

// Interrupted reports whether an interrupt arrived while the scope was open.
func (s *Scope) Interrupted() bool {
	if s.released {
		return s.result
	}
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()
	return s.guard.interrupted
}

// Release returns the guard to ignoring interrupts and reports whether one
// arrived during the scope. Releasing twice is a no-op.
func (s *Scope) Release() bool {
	if s.released {
		return s.result
	}

	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()
	s.result = s.guard.interrupted
	s.guard.interruptible = false
	s.guard.interrupted = false
	s.released = true
	return s.result
}
