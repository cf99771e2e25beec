// Package tracker owns the per-segment generation state of a production.
//
// Each (segment, resource kind) pair moves independently through
// pending → generating → done|failed. A failed unit may re-enter generating,
// while a done unit only does so through ForceRegenerate, which clears the
// stored URL first so a done status never carries a stale URL. The tracker is
// safe for concurrent use by fan-out workers and has no durability of its own;
// callers snapshot it into a checkpoint after every mutation.
package tracker
