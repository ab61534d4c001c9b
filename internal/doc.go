// Package internal holds helpers that are private to goRights.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - metrics: lock-free counters and the decision latency histogram
//
// # What this package must NOT do
//
//   - Export types that appear in the public goRights API other than through
//     aliases declared in the root package.
//   - Be imported by any package outside the goRights module.
package internal
