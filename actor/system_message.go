package actor

// SystemMessage is the closed set of control messages a dispatcher drains
// ahead of any user message, regardless of mailbox throughput limits. Unlike
// Message, the set is sealed by an unexported method with no external
// extension point: every variant the runtime needs is defined in this file.
type SystemMessage interface {
	systemMessageMarker()
}

type baseSystemMessage struct{}

func (baseSystemMessage) systemMessageMarker() {}

// CreateMsg instructs a cell to start its Actor and enter StateRunning.
type CreateMsg struct{ baseSystemMessage }

// RecreateMsg instructs a cell to restart in place, reusing its Pid.ID but
// bumping Incarnation.
type RecreateMsg struct {
	baseSystemMessage
	Cause error
}

// SuspendMsg pauses user-message processing; the mailbox's Suspend flag is
// set and subsequent user sends queue without being drained.
type SuspendMsg struct{ baseSystemMessage }

// ResumeMsg clears a prior SuspendMsg.
type ResumeMsg struct{ baseSystemMessage }

// WatchMsg registers Watcher to be notified with a TerminatedMsg when this
// cell stops.
type WatchMsg struct {
	baseSystemMessage
	Watcher Pid
}

// UnwatchMsg removes a prior WatchMsg registration.
type UnwatchMsg struct {
	baseSystemMessage
	Watcher Pid
}

// TerminatedMsg notifies a watcher that the named actor has stopped.
type TerminatedMsg struct {
	baseSystemMessage
	Who Pid
}

// FailedMsg is sent from a child cell to its parent supervisor when the
// child's behavior raised an ActorError it could not absorb itself.
type FailedMsg struct {
	baseSystemMessage
	Child Pid
	Err   *ActorError
}

// StopMsg instructs a cell to begin its Stopping sequence.
type StopMsg struct{ baseSystemMessage }
