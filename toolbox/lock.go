package toolbox

import (
	"sync"
	"sync/atomic"
)

// Mutex is a narrow view of sync.Mutex/sync.RWMutex-like exclusion,
// returning an unlock closure so callers can write `defer unlock()` and
// guarantee release on every exit path, including panics.
type Mutex interface {
	Lock() (unlock func())
}

// RWMutex adds a read-lock variant to Mutex.
type RWMutex interface {
	Mutex
	RLock() (runlock func())
}

// LockFactory produces the Mutex/RWMutex implementations a component should
// use, so a host can swap in a different primitive (e.g. a spinlock on a
// target without OS thread scheduling) without touching call sites.
type LockFactory interface {
	NewMutex() Mutex
	NewRWMutex() RWMutex
}

// stdMutex wraps sync.Mutex.
type stdMutex struct{ mu sync.Mutex }

func (m *stdMutex) Lock() func() {
	m.mu.Lock()
	return m.mu.Unlock
}

// stdRWMutex wraps sync.RWMutex.
type stdRWMutex struct{ mu sync.RWMutex }

func (m *stdRWMutex) Lock() func() {
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *stdRWMutex) RLock() func() {
	m.mu.RLock()
	return m.mu.RUnlock
}

// StdLockFactory builds sync.Mutex/sync.RWMutex-backed locks, the default
// for hosted targets.
type StdLockFactory struct{}

// NewMutex implements LockFactory.
func (StdLockFactory) NewMutex() Mutex { return &stdMutex{} }

// NewRWMutex implements LockFactory.
func (StdLockFactory) NewRWMutex() RWMutex { return &stdRWMutex{} }

// spinMutex is a busy-wait mutex for targets where goroutine parking via
// the runtime's semaphore is undesirable (e.g. a minimal bare-metal
// scheduler). It is not fair and should only be held briefly.
type spinMutex struct {
	state atomic.Int32
}

func (m *spinMutex) Lock() func() {
	for !m.state.CompareAndSwap(0, 1) {
		// Busy-wait; critical sections using this lock must be short.
	}
	return func() { m.state.Store(0) }
}

// SpinLockFactory builds busy-wait locks. RWMutex degrades to a plain
// mutex: a spin-based reader/writer lock is not worth the complexity for
// the short critical sections this runtime takes.
type SpinLockFactory struct{}

// NewMutex implements LockFactory.
func (SpinLockFactory) NewMutex() Mutex { return &spinMutex{} }

// NewRWMutex implements LockFactory.
func (SpinLockFactory) NewRWMutex() RWMutex {
	return &spinRWMutex{m: &spinMutex{}}
}

type spinRWMutex struct{ m *spinMutex }

func (m *spinRWMutex) Lock() func()  { return m.m.Lock() }
func (m *spinRWMutex) RLock() func() { return m.m.Lock() }
