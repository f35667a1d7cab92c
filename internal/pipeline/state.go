package pipeline

import "sync"

// State is a session manager's lifecycle position.
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateRecording
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StatePreparing:
		return "preparing"
	case StateRecording:
		return "recording"
	case StateFinalizing:
		return "finalizing"
	default:
		return "idle"
	}
}

// stateMachine serializes lifecycle transitions. Start is only legal
// from Idle; a second start while any session is underway is rejected
// rather than relying on caller discipline.
type stateMachine struct {
	mu    sync.Mutex
	state State
}

// begin moves Idle -> Preparing, or reports ErrSessionActive.
func (m *stateMachine) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return ErrSessionActive
	}
	m.state = StatePreparing
	return nil
}

func (m *stateMachine) set(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *stateMachine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
