// Package store persists the default rights buffers of the stored tiers
// (user and admin).
//
// # Implementations
//
//   - [Memory]: process-local map, used by default and in tests.
//   - [Redis]: one key per tier on any redis.UniversalClient.
//   - [Postgres]: one row per tier in default_rights, over any [DBTX].
//
// [LoadSeed] reads a YAML description of tier rights and [Seed.Apply] writes
// it through any [Store].
//
// # Architecture boundaries
//
// Stores move opaque buffers. They do not validate masks against catalogs
// (the engine does) and never make authorization decisions.
//
// # What this package must NOT do
//
//   - Import goRights (the engine imports stores, not the reverse).
//   - Return buffers that alias internal state.
package store
