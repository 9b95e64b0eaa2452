// Package aliases loads the alias and redirect tables and resolves redirect
// chains to canonical entity identifiers.
//
// A DataMap maps alias keys such as "enwiki:Barack Obama" to the canonical
// ID of the entity they name. A RedirectMap maps alias keys to other alias
// keys. Resolve rewrites a DataMap in place so that every redirect whose
// chain reaches a known alias maps straight to that alias's canonical ID:
//
//	dm, err := aliases.LoadDataMap(aliasFile)
//	rm, err := aliases.LoadRedirects(redirectFile)
//	stats := aliases.Resolve(dm, rm)
//	rm = nil // no longer needed
//
// Resolve is single-threaded. Once it returns, the DataMap is read-only and
// may be shared by any number of goroutines.
package aliases
