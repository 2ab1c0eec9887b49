// Package cache provides age-aware byte caches with interchangeable storage
// backends.
//
// # ByteCache
//
// [ByteCache] stores opaque payloads keyed by string. Every write stamps the
// entry with the time it was stored, and [ByteCache.Retrieve] takes a maxAge:
//
//	data, found, err := c.Retrieve(ctx, "guides", time.Hour)
//
// With maxAge > 0 an entry older than maxAge is reported as absent but is
// left in place, so a later read with [NoMaxAge] can still serve it as a
// last resort. An entry whose timestamp is missing or unreadable is treated
// as expired by any bounded read.
//
// # Implementations
//
//   - [NewKeyValue] over [NewMemoryStore]: small payloads held in process.
//     Entries are msgpack-encoded [Entry] records so payload and timestamp
//     are always written together. Keys are namespaced by a prefix so
//     [ByteCache.ClearAll] leaves unrelated keys in a shared store alone.
//
//   - [NewKeyValue] over [NewRedisStore]: the same record format in Redis,
//     shared by every process pointing at it.
//
//   - [NewFile]: one payload file and one "_timestamp" companion file per key
//     in a dedicated directory. Writes to the same key are serialized by a
//     striped lock and each file is replaced by rename, so readers never see
//     a new payload next to an old timestamp.
//
//   - [NewSQLite]: one row per key, namespaced, backed by [modernc.org/sqlite].
//
//   - [NewTiered]: several caches chained fastest first.
//
// Expired entries are never swept in the background. They are overwritten
// by the next successful fetch or removed explicitly.
package cache
