// Package dag orders recipes so that every recipe is built after the
// recipes it depends on.
//
// Only dependencies naming another loaded recipe become edges; packages that
// are already published elsewhere play no part in the ordering. Ordering is
// computed in tiers: every node whose dependencies have all been emitted
// forms the next tier, in the order the nodes were added to the graph.
// When a pass emits nothing while nodes remain, the remainder contains a
// cycle and resolution fails with *CycleError.
package dag
