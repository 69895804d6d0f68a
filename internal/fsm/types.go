// Package fsm implements the hierarchical protocol state machine
// (component C4): a forest of states addressed by dense arena index
// (spec §9 design note), parent/child permission inheritance, guarded
// transitions with enter/exit hooks, and checksummed snapshot/restore.
package fsm

// Inheritance controls how a child state's effective permission set
// relates to its parent's (spec §4.4).
type Inheritance uint8

const (
	// InheritNone returns only the child's own permission set.
	InheritNone Inheritance = iota
	// InheritAdditive returns child ∪ parent, recursively.
	InheritAdditive
	// InheritSubtractive returns child \ parent.
	InheritSubtractive
	// InheritReplace returns the parent's effective set, recursively,
	// ignoring the child's own.
	InheritReplace
)

// Hook runs on state entry/exit. Receives the state's own name so one hook
// function can serve several states if desired.
type Hook func(state string)

// Guard evaluates whether a transition may proceed.
type Guard func() bool

// stateNode is one arena entry: a state plus its structural relationships
// to other states, referenced by dense index rather than pointer.
type stateNode struct {
	name        string
	parent      int // -1 if root
	locked      bool
	inheritance Inheritance
	permissions map[string]struct{}
	onEnter     Hook
	onExit      Hook
}

// transition is one named edge between two states.
type transition struct {
	name     string
	from     string
	to       string
	guard    Guard
	internal bool // internal transitions skip exit/enter hooks
}
