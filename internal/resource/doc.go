// Package resource tracks the images produced by the server's tools.
//
// Every successful tool call yields exactly one new, immutable Resource.
// Edits never modify an existing resource; instead the new resource points
// back at its source through ParentID, forming a linear edit chain:
//
//	generated -> edited -> background_removed -> hosted
//
// # Registry
//
// The Registry is the only shared mutable state in the server. It is an
// explicitly constructed component (one per server, or one per test) and
// is safe for concurrent use. Ids are UUIDs assigned at registration and
// are never reused for the lifetime of the registry.
//
// # Eviction
//
// The registry keeps resources in memory only. Two bounds are available:
//   - Capacity: FIFO eviction of the oldest resources once the limit is hit
//   - TTL: resources older than the TTL stop being visible and are dropped
//     on the next registration or Prune call
//
// A parent reference stays valid after the parent has been evicted; only
// Lookup of the evicted parent fails.
package resource
