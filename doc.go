// Package memvfs implements an in-memory virtual filesystem core: a
// hierarchical namespace of nodes with stable integer keys, byte
// content for regular files, symlinks resolved lazily with cycle
// detection, and an extensible per-view attribute model.
//
// The package is the storage engine only. Public path facades, byte
// stream wrappers, watch delivery and configuration loading are
// expected to live above it and drive the primitives exposed here:
// Resolve for lookups, the Create/Link/Delete/Move family for
// structural mutation, File.Bytes for content access and the
// AttributeService for metadata.
//
// Structural mutations are serialized by one coarse lock owned by the
// FileStore, so a rename is observed atomically and concurrent
// creates of one name have exactly one winner. Byte stores and
// attribute tables are serialized per node and never contend across
// files. Everything is synchronous; there is no I/O to cancel, so no
// operation takes a context.
package memvfs
