// Package core provides the identity-resolution and idempotent-load engine.
//
// The package has no transport or storage dependencies. It can be driven by
// the CLI, the HTTP server, or tests without modification.
//
// # Pipeline
//
// Each submission row flows one way:
//
//	raw cells -> Normalizer -> identity keys -> Resolver -> Recorder -> RunReport
//
// Only the Resolver holds mutable state (the key to id index). Two variants
// share the [Resolver] contract:
//
//   - [MemoryResolver]: batch mode. Parent ids are allocated up front by
//     [MemoryResolver.Prepare] in original-id order, so output is reproducible.
//   - [StoreResolver]: incremental mode. Point lookups with insert on miss;
//     the store's unique constraints decide new versus existing.
//
// # Units of work
//
// [Loader.ProcessRow] applies a row inside one [Unit]: a store transaction in
// incremental mode ([StoreWork]), an in-memory checkpoint in batch mode
// ([Batch]). A failed row is rolled back as a whole and the run continues.
//
// # Error Handling
//
// Row failures become [RowResult.Err] and are counted. Coercions become
// [Warning] values and are not errors. Source and store outages abort the run.
// [MapError] assigns each error a stable code:
//
//   - ROW001-ROW003: Row errors (rejected, inconsistent, failed)
//   - SRC001-SRC002: Source errors (unavailable, bad layout)
//   - DB001-DB002: Store errors (unavailable, constraint)
//   - RUN001-RUN002: Run errors (already running, cancelled)
package core
