package host

import "sync"

// Activations tracks which users currently have a plugin release
// activated. Activation state is advisory bookkeeping for the host; the
// relational store remains the source of truth for installations.
type Activations interface {
	Activate(userID string)
	Deactivate(userID string)
	Active(userID string) bool
}

// Memory is the standalone Activations implementation backed by an
// in-memory set. It serves remote installations and tests, where no
// host application is present.
type Memory struct {
	mu    sync.Mutex
	users map[string]struct{}
}

// NewMemory returns an empty in-memory activation set.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]struct{})}
}

// Activate records the user as active.
func (m *Memory) Activate(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = struct{}{}
}

// Deactivate removes the user from the active set.
func (m *Memory) Deactivate(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
}

// Active reports whether the user is recorded as active.
func (m *Memory) Active(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[userID]
	return ok
}

// Funcs adapts host-provided callbacks to the Activations interface.
// Nil callbacks are treated as no-ops so hosts can supply only the
// hooks they care about.
type Funcs struct {
	ActivateFunc   func(userID string)
	DeactivateFunc func(userID string)
	ActiveFunc     func(userID string) bool
}

// Activate invokes the host activation hook when present.
func (f Funcs) Activate(userID string) {
	if f.ActivateFunc != nil {
		f.ActivateFunc(userID)
	}
}

// Deactivate invokes the host deactivation hook when present.
func (f Funcs) Deactivate(userID string) {
	if f.DeactivateFunc != nil {
		f.DeactivateFunc(userID)
	}
}

// Active invokes the host activity hook, defaulting to false.
func (f Funcs) Active(userID string) bool {
	if f.ActiveFunc != nil {
		return f.ActiveFunc(userID)
	}
	return false
}

var (
	_ Activations = (*Memory)(nil)
	_ Activations = Funcs{}
)
