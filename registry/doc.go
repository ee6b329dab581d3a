// Package registry holds the set of monitored services.
//
// A Registry maps unique service names to probe addresses and remembers
// insertion order. It is owned by whoever constructs it and is passed to the
// health engine explicitly; there is no package-level instance.
//
// Three mutations exist:
//
//	reg.Replace(entries)         // swap the whole contents
//	reg.Add("api", "http://...") // fails with ErrDuplicateService
//	reg.AddBulk(entries)         // all-or-nothing, at least two entries
//
// Add and AddBulk return the number of registered services as of the
// mutation, read under the same lock.
//
// Snapshot returns an immutable copy that never reflects a partially
// applied AddBulk.
package registry
