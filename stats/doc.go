// Package stats holds the per-candidate counting used by the scorer:
// support and exact-match counters per canonical target, their combined
// ordering, and the confidence normalization.
package stats
