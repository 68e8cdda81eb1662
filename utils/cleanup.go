package utils

import "time"

// StartJanitor launches a background goroutine that periodically drops expired entries from
// the in-memory fallbacks (token blacklist, registration counters). It is a no-op for data
// held in redis, which expires on its own.
func StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for now := range ticker.C {
			if n := PruneExpired(now); n > 0 {
				Sugar.Debugw("pruned expired in-memory entries", "count", n)
			}
		}
	}()
}

// PruneExpired removes every in-memory entry that expired at or before now and returns how many.
func PruneExpired(now time.Time) int {
	removed := 0

	blacklistMu.Lock()
	for token, expiresAt := range blacklist {
		if !now.Before(expiresAt) {
			delete(blacklist, token)
			removed++
		}
	}
	blacklistMu.Unlock()

	regMemMu.Lock()
	for key, e := range regMem {
		if !now.Before(e.expiresAt) {
			delete(regMem, key)
			removed++
		}
	}
	regMemMu.Unlock()

	return removed
}
