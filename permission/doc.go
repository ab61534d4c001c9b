// Package permission provides the permission catalog: the closed set of action
// names and the single-byte bit each one occupies inside a resource mask.
//
// # Bit layout
//
// Every permission owns exactly one power-of-two bit in 1..128, so the union of
// all permissions always fits in one byte. Bits are fixed when the [Catalog] is
// constructed and are stable for the lifetime of the process.
//
// # Architecture boundaries
//
// This package is a pure in-memory lookup table with no I/O. Unknown names are
// reported with the [Invalid] sentinel rather than errors so that the decision
// engine can abstain without branching on error values.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import goRights, rights, resource, or role.
//   - Mutate a catalog after construction.
package permission
