// Package store provides a SQLite-backed cache of compiled modules.
//
// An artifact is the LLVM text of one module together with the functions it
// defines. Artifacts are keyed by module hash (see ir.ModuleHash), so a build
// whose IR, module name and generator version are unchanged can reuse the
// stored text instead of compiling again.
//
// # Ordering
//
// Artifacts carry a seq value from the driver's logical clock. Listings are
// ordered by seq, then id, never by wall time.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: function rows belong to an artifact
package store
