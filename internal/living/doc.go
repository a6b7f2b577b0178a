// Package living implements the per-user living agent: a bounded memory, a
// phase/energy state machine, a wound tint, a myth preamble, a stochastic
// deviation license and the reflection step that runs after generation.
//
// None of the types in this package are safe for concurrent use. Callers
// serialize turns per user (see the agent service).
package living
