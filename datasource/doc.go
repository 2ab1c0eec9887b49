// Package datasource provides composable origins for raw resource bytes.
//
// A [ContentSource] produces the bytes of one resource. Leaves read a
// bundled asset ([LocalSource]) or an HTTP endpoint ([RemoteSource]).
// Decorators add cache-aside reads ([CachedSource]) or failover between two
// sources ([FallbackSource]). A typical graph is
//
//	Fallback(Cached(Remote), Local)
//
// which serves a fresh cache entry, otherwise the remote payload, and only
// when that whole path fails the bundled copy.
//
// # Errors
//
// Every failure is a [*Error] whose [Kind] is one of a closed set. Use
// errors.Is against the kind sentinels ([ErrNetwork], [ErrFileNotFound], ...)
// or [KindOf]. Network and decoding errors keep their underlying cause.
//
// # Concurrency and cancellation
//
// Each Fetch is a sequential chain: cache read, then maybe the remote
// request, then maybe the local read. Nothing is raced or fanned out.
// Sources hold no per-call state and may be shared by goroutines.
// Cancelling the context aborts an in-flight remote request; cache and
// local legs check the context before starting and are not interrupted.
// The timeout applies to the remote leg only.
//
// Concurrent misses for the same key each fetch the remote independently
// unless the CachedSource was built with [WithCoalescing].
package datasource
