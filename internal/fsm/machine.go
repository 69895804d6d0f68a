package fsm

import (
	"sync"

	"github.com/obinexus/polycall-core/internal/corectx"
)

// Machine is a hierarchical state machine: states and transitions are
// registered before the machine is started (its first transition
// execution); afterward the structure is fixed (spec §4.4).
//
// Single-writer per spec §5: only the owning session goroutine calls
// Fire; Snapshot may be called concurrently and observes a consistent view
// because the checksum acts as a fence.
type Machine struct {
	mu          sync.RWMutex
	states      []*stateNode
	index       map[string]int
	transitions map[string]*transition
	current     int
	started     bool
}

// New creates an empty Machine.
func New() *Machine {
	return &Machine{
		index:       make(map[string]int),
		transitions: make(map[string]*transition),
		current:     -1,
	}
}

// AddState registers a state. parent is "" for a root state. Fails with
// invalid-state if the machine has started, already-exists if the name is
// taken, and not-found if parent is unknown.
func (m *Machine) AddState(name, parent string, inheritance Inheritance, perms []string, onEnter, onExit Hook) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return corectx.New("fsm", corectx.CodeInvalidState, "cannot add state after machine has started")
	}
	if _, exists := m.index[name]; exists {
		return corectx.New("fsm", corectx.CodeAlreadyExists, "state already registered").WithContext(name)
	}

	parentIdx := -1
	if parent != "" {
		idx, ok := m.index[parent]
		if !ok {
			return corectx.New("fsm", corectx.CodeNotFound, "unknown parent state").WithContext(parent)
		}
		parentIdx = idx
	}

	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}

	m.states = append(m.states, &stateNode{
		name:        name,
		parent:      parentIdx,
		inheritance: inheritance,
		permissions: set,
		onEnter:     onEnter,
		onExit:      onExit,
	})
	m.index[name] = len(m.states) - 1

	if len(m.states) == 1 {
		m.current = 0
	}
	return nil
}

// Lock marks a state as locked: transitions targeting it always fail.
func (m *Machine) Lock(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.index[name]
	if !ok {
		return corectx.New("fsm", corectx.CodeNotFound, "unknown state").WithContext(name)
	}
	m.states[idx].locked = true
	return nil
}

// AddTransition registers a named edge. Fails with invalid-state if the
// machine has started, already-exists if the name is taken, and not-found
// if either endpoint state is unknown.
func (m *Machine) AddTransition(name, from, to string, guard Guard, internal bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return corectx.New("fsm", corectx.CodeInvalidState, "cannot add transition after machine has started")
	}
	if _, exists := m.transitions[name]; exists {
		return corectx.New("fsm", corectx.CodeAlreadyExists, "transition already registered").WithContext(name)
	}
	if _, ok := m.index[from]; !ok {
		return corectx.New("fsm", corectx.CodeNotFound, "unknown from-state").WithContext(from)
	}
	if _, ok := m.index[to]; !ok {
		return corectx.New("fsm", corectx.CodeNotFound, "unknown to-state").WithContext(to)
	}
	m.transitions[name] = &transition{name: name, from: from, to: to, guard: guard, internal: internal}
	return nil
}

// Current returns the name of the machine's current state.
func (m *Machine) Current() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current < 0 {
		return ""
	}
	return m.states[m.current].name
}

// Fire executes the named transition (spec §4.4 algorithm).
func (m *Machine) Fire(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transitions[name]
	if !ok {
		return corectx.New("fsm", corectx.CodeNotFound, "unknown transition").WithContext(name)
	}
	if m.current < 0 || m.states[m.current].name != t.from {
		return corectx.New("fsm", corectx.CodeInvalidState, "wrong-state").WithContext(name)
	}

	targetIdx := m.index[t.to]
	target := m.states[targetIdx]
	if target.locked {
		return corectx.New("fsm", corectx.CodeInvalidState, "locked").WithContext(t.to)
	}
	if t.guard != nil && !t.guard() {
		return corectx.New("fsm", corectx.CodeGuardDenied, "transition guard returned false").WithContext(name)
	}

	m.started = true

	if t.internal {
		m.current = targetIdx
		return nil
	}

	cur := m.states[m.current]
	if err := m.crossBoundary(cur, target); err != nil {
		return err
	}
	m.current = targetIdx
	return nil
}

// crossBoundary runs exit hooks bottom-up from cur to the common ancestor
// with target, then enter hooks top-down from the common ancestor to
// target (spec §4.4 step 6).
func (m *Machine) crossBoundary(cur, target *stateNode) error {
	ancestor := m.commonAncestor(cur, target)

	for n := cur; n != ancestor; n = m.parentOf(n) {
		if n.onExit != nil {
			n.onExit(n.name)
		}
	}

	path := m.pathToAncestor(target, ancestor)
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		if n.onEnter != nil {
			n.onEnter(n.name)
		}
	}
	return nil
}

func (m *Machine) parentOf(n *stateNode) *stateNode {
	if n.parent < 0 {
		return nil
	}
	return m.states[n.parent]
}

// commonAncestor returns the deepest state that is an ancestor of (or
// equal to) both a and b, or nil if they share no ancestor.
func (m *Machine) commonAncestor(a, b *stateNode) *stateNode {
	ancestors := make(map[*stateNode]struct{})
	for n := a; n != nil; n = m.parentOf(n) {
		ancestors[n] = struct{}{}
	}
	for n := b; n != nil; n = m.parentOf(n) {
		if _, ok := ancestors[n]; ok {
			return n
		}
	}
	return nil
}

// pathToAncestor returns target's chain of ancestors up to (excluding)
// ancestor, ordered from target up to the ancestor's direct child.
func (m *Machine) pathToAncestor(target, ancestor *stateNode) []*stateNode {
	var path []*stateNode
	for n := target; n != ancestor; n = m.parentOf(n) {
		path = append(path, n)
	}
	return path
}

// EffectivePermissions resolves state's permission set by walking the
// parent chain according to its inheritance policy (spec §4.4).
func (m *Machine) EffectivePermissions(state string) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.index[state]
	if !ok {
		return nil, corectx.New("fsm", corectx.CodeNotFound, "unknown state").WithContext(state)
	}
	return m.effective(m.states[idx]), nil
}

func (m *Machine) effective(n *stateNode) map[string]struct{} {
	own := cloneSet(n.permissions)
	parent := m.parentOf(n)
	if parent == nil {
		return own
	}
	parentSet := m.effective(parent)

	switch n.inheritance {
	case InheritNone:
		return own
	case InheritAdditive:
		return union(own, parentSet)
	case InheritSubtractive:
		return difference(own, parentSet)
	case InheritReplace:
		return parentSet
	default:
		return own
	}
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func union(a, b map[string]struct{}) map[string]struct{} {
	out := cloneSet(a)
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func difference(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, excluded := b[k]; !excluded {
			out[k] = struct{}{}
		}
	}
	return out
}
