// Package cache stores validated and rewritten programs keyed by policy
// identity and source text, so repeated executions of the same source under
// the same policy skip validation.
//
// # Tiers
//
// Memory is an in-process map with TTL expiry and LRU eviction. Redis shares
// entries across processes and SQLite keeps them across restarts. Tiered puts
// a Memory cache in front of either remote tier and promotes remote hits.
//
// Remote tiers address rows by the SHA-256 digest of the key and store the
// entry JSON encoded. Values are a pure function of the key, so concurrent
// writers racing on the same key may let either write win.
//
// # Basic Usage
//
//	mem := cache.NewMemory(cache.MemoryConfig{TTL: time.Hour, MaxEntries: 1000})
//	defer mem.Close()
//
//	key := cache.Key(identity, source)
//	if entry, ok, _ := mem.Get(ctx, key); ok {
//	    return entry.Code
//	}
//	_ = mem.Set(ctx, key, &cache.Entry{Tree: tree, Code: code})
package cache
