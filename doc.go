// Package goRights provides a bitmask authorization engine: per-resource
// permission masks packed into a compact rights buffer, three canonical role
// tiers (user, admin, super-admin) and a voter that answers grant, deny or
// abstain for an action on a subject.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goRights is the public surface. It exposes [Engine], [Builder], [Config],
// [User] and the decision values. Catalogs, the buffer codec, tier roles and
// persistence live in the permission, resource, rights, role and store
// packages. Audit dispatch and metric counters live under internal/.
//
// # What this package must NOT do
//
//   - Touch a store while deciding. Decisions read an immutable snapshot.
//   - Let a principal's rights buffer affect a super-admin decision.
//   - Import any sub-package that re-imports goRights (no import cycles).
//
// # Performance contract
//
// Decide is the hot path. With metrics disabled it performs one atomic load,
// one map lookup per catalog and a byte read. Reload and the Update methods
// are allowed one store round-trip per stored tier.
package goRights
