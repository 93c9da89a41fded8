// Package cognition wires the memory engine together: the orchestrator
// turns raw input into facts, patterns and emotional movement, and the
// sleep cycle periodically replays, consolidates and decays what the
// session has accumulated.
package cognition
