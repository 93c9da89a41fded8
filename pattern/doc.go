/*
Package pattern implements the long-term memory of the cognitive
engine: weighted clusters of semantically similar facts with aggregate
emotional signatures.

[Store] keeps an explicit cache-aside map of patterns in front of a
backing vector store ([Backing]). The ingestion path ([Store.ProcessFact])
groups a new fact with its nearest stored neighbours, merging into an
existing cluster or creating a new one. Reinforcement
([Store.StrengthenPattern]) applies exponential time decay before adding
weight, so a pattern's age is folded into its weight; periodic
consolidation ([Store.Consolidate]) then prunes clusters whose weight
has fallen to the retention floor.

Consolidation in this package means pruning. The rescaling flavour of
consolidation lives in the memory package.
*/
package pattern
