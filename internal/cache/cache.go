// Package cache stores generated speech audio so repeated reads of the
// same text skip synthesis. It is a two-tier store: a byte-bounded LRU
// in memory backed by a zstd-compressed directory on disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrItemTooLarge is returned when a value exceeds a tier's capacity.
var ErrItemTooLarge = errors.New("cache: item larger than capacity")

// Stats are the usage counters of a single cache tier.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int64
	Capacity  int64
	ItemCount int64
}

// HitRate returns the fraction of lookups served from this tier.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Key derives the cache key for a piece of synthesized audio. Audio is
// only reusable when the engine, voice, speed, and text all match.
func Key(engine, voice string, speed float64, text string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%.3f|%s", engine, voice, speed, text)
	return hex.EncodeToString(h.Sum(nil))
}
