// Package cache provides the local result cache for SGS queries.
//
// Entries are keyed by (series code, sub-range) with a per-entry TTL
// derived from the series' periodicity: a daily series stays fresh for
// an hour, a weekly one for six, a monthly one for a day. Only exact
// key matches hit; there is no partial-range overlap reasoning, so
// callers that vary their chunk boundaries will not benefit from
// entries stored under different boundaries.
//
// The cache is disabled by default. While disabled, Lookup always
// misses and Store is a no-op. Activate it with a concrete Store:
//
//	mgr := cache.NewManager(catalog.Default())
//	store, err := cache.OpenSQLite(cache.DefaultPath())
//	if err != nil {
//		return err
//	}
//	mgr.Activate(store)
//
// Two Store backends ship with the package:
//
//   - SQLite (modernc.org/sqlite): a durable single-file store that
//     survives process restarts. Expired entries are lazily deleted at
//     read time and can be swept in bulk with PurgeExpired. Writes use
//     single-row INSERT OR REPLACE, so concurrent writers racing on the
//     same key resolve to last-write-wins without corruption.
//   - Redis (go-redis): for deployments that already run Redis and want
//     the cache shared across processes. TTLs map onto native key
//     expiry, so PurgeExpired reports zero there.
//
// Cache read errors never fail a fetch: the manager logs them and
// reports a miss, falling back to the upstream.
package cache
