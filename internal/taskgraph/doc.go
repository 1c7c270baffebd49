// Package taskgraph is a registry of named build steps with explicit ordering
// constraints, and the scheduler that runs them.
//
// A node declares predecessors that must run one after another
// (Deps.Sequential) followed by a set that runs as one concurrent barrier
// (Deps.Concurrent). Only after both complete does the node's own work start.
// Nodes without work are composites.
//
// Each call to Run is an invocation: every reachable node runs at most once per
// invocation, and invocations share nothing but the state the steps themselves
// capture (configuration, metadata store). Two invocations of the same step may
// overlap unless the graph was built WithSerializedSteps; the last writer wins.
package taskgraph
