// Package keycache provides SQLite-backed durable storage for assigned
// random keys.
//
// The cache maps (bit_width, fingerprint) to the random key assigned the
// first time that fingerprint was seen at that width. Keying by bit width
// first lets multiple widths coexist: a deployment that changes its
// configured maximum batch size starts a fresh sub-map instead of mixing
// incomparable keys.
//
// Entries are insert-only. A key is written once, read on every later run,
// and never updated or deleted (the cache grows monotonically; pruning is
// out of scope).
//
// The same database also holds the post-URL to gist-URL mapping used by the
// publisher, so a re-run updates its existing gist instead of creating a
// new one.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//
// The store is not designed for concurrent writers. Simultaneous runs
// against one database are an acknowledged gap; insert-only semantics mean
// the worst case is a lost insert, never a changed key.
package keycache
