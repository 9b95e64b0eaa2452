// Package scoring decides whether a candidate phrase reliably refers to one
// or more canonical entities.
//
// A Scorer runs a phrase query against the document index and counts, per
// canonical target reachable through the alias table, how many matching
// documents link to it (support) and how many of those links carry the
// phrase itself as label (exact matches). Targets are ranked by the
// combined score and kept while their support stays above an adaptive
// threshold. The survivors are rendered as one report line:
//
//	barack obama	25	22	Q76:22:20:100%
//
// i.e. phrase, total hits, contributing documents, then
// target:support:exact:confidence% per kept target.
//
// A Scorer keeps reusable scratch state and must be used by one goroutine
// at a time; create one per worker.
package scoring
