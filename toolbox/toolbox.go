package toolbox

// AllocPolicy states whether a component facing unexpected growth may
// allocate past its initial sizing, or must instead apply backpressure/fail.
// No component in this module reads it: a PolicyMailbox under Grow overflow
// and the scheduler Wheel allocate whatever its value.
type AllocPolicy struct {
	// DynamicAllocationAllowed states whether growth past initial capacity
	// is permitted.
	DynamicAllocationAllowed bool
}

// DefaultAllocPolicy permits dynamic allocation, the right default for a
// hosted process.
func DefaultAllocPolicy() AllocPolicy {
	return AllocPolicy{DynamicAllocationAllowed: true}
}

// Toolbox aggregates the host abstractions a runtime component is built
// against. Passing one explicitly (rather than reaching for global
// constructors) keeps the scheduler and actor packages free of hidden
// dependence on a particular OS/goroutine environment.
type Toolbox struct {
	Clock Clock
	Locks LockFactory
	Ticks TickSource
	Alloc AllocPolicy
}

// Hosted returns the default Toolbox for a normal Go process: a wall-clock
// SystemClock, sync.Mutex-backed locks, and dynamic allocation permitted.
// Ticks is left nil; callers that drive a Wheel with Run supply their own
// TickSource.
func Hosted() Toolbox {
	return Toolbox{
		Clock: SystemClock{},
		Locks: StdLockFactory{},
		Alloc: DefaultAllocPolicy(),
	}
}
