// Package history archives point-in-time snapshots of settings objects so
// they can be inspected or restored later.
//
// Responsibilities:
//   - Store only loads/saves a single snapshot for a single Ref.
//   - Archive orchestrates reads and writes, assigns snapshot identifiers,
//     and enforces optimistic concurrency through Meta.ETag.
//   - The core settings package remains persistence-agnostic; snapshots enter
//     and leave this package as the plain maps produced by Snapshot and
//     consumed by Restore.
//
// Data flow:
//
//	obj.Snapshot() -> Archive.Record -> Store
//	Store -> Archive.Load -> obj.Restore(...)
//
// Deterministic keys:
//
//	Ref.Identifier() provides a canonical storage key of the form
//	`section/id` (or just `id` for objects not bound to a section). Store
//	implementations should treat it as opaque.
package history
