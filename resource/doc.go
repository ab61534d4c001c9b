// Package resource provides the resource catalog: the closed set of entity
// type names subject to authorization and the byte offset each one owns inside
// a packed rights buffer.
//
// Offsets are injective and fixed at construction. [Catalog.NameFor] derives a
// resource name from a string, a [reflect.Type], or a live value by keeping the
// final segment of the qualified type name, so callers can pass either an
// entity instance or a bare type interchangeably.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import goRights, rights, permission, or role.
//   - Mutate a catalog after construction.
package resource
