/*
Package memory provides the fast in-process layer of the cognitive
engine: a bounded working-memory buffer of recent facts with pluggable
eviction, and per-channel sensory context windows.

# Working memory

[WorkingMemory] is a capacity-bounded ordered buffer. When full, one
entry is evicted before each insertion, either by recency (drop the
oldest) or by weight (drop the globally lightest, lowest index on
ties). The buffer never exceeds its capacity at any observable point.

[WorkingMemory.SampleByWeight] feeds the sleep cycle with the heaviest
facts, and [WorkingMemory.Consolidate] renormalizes weights so the
heaviest fact is exactly 1.0. Consolidation here is rescaling; pruning
of weak clusters lives in the pattern package.

# Sensory context

[SensoryContext] keeps a small sliding window of recent facts per input
channel, used as extraction context for subsequent inputs.
*/
package memory
