// Package driver runs builds: a named list of IR functions lowered into one
// LLVM module.
//
// A build hashes its input first. When a store is configured and already
// holds an artifact under the same key, the stored module text is returned
// without compiling. Otherwise a fresh codegen.Unit compiles the functions
// in order and the result is written back to the store.
//
// Each build owns its unit, so separate builds may run concurrently. Within
// a build, functions compile sequentially and the context is checked between
// them; a function is never interrupted midway.
//
// Artifacts are stamped with IDs from an IDGenerator (UUIDv7 by default) and
// seq values from a logical clock seeded from the store's highest seq.
// Listings order by seq, never by wall time.
package driver
