package flowgraph

import "time"

// END is the terminal node identifier.
// An edge to END marks its source as a designated terminal.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and the current state,
// and return the next state and any fatal error.
//
// The state parameter is passed by value. Nodes return a new state value
// and must not rely on pointer mutation.
//
// Example:
//
//	func capture(ctx flowgraph.Context, s State) (State, error) {
//	    s.Input = strings.TrimSpace(s.Input)
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// NodeObserver is notified after every node execution.
// err is nil when the node completed.
type NodeObserver func(nodeID string, duration time.Duration, err error)
