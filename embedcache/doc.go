// Package embedcache persists embedding matrices keyed by a digest of the
// corpus they were computed from.
//
// Keys are content addresses: [Key] hashes the sorted corpus texts, so a key
// always maps to the same matrix and entries never need invalidation.
// Stored rows follow the sorted texts, not the caller's corpus order. Two
// backends are provided:
//
//   - [FileCache]: one file per key under a directory, written atomically
//     under a cross-process file lock
//   - [SQLiteCache]: one row per key in a SQLite table
//
// Both treat unreadable or corrupt entries as misses and log them instead of
// returning errors.
package embedcache
