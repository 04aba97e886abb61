package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ExclusionSet is a thread-safe set of track identifiers that must not enter
// a candidate pool: identifiers already seen this request plus the ledger's
// recent window. The Bloom filter answers the common negative case without
// touching the map; the LRU bounds memory when the recent window grows large.
type ExclusionSet struct {
	trackIDs          map[string]struct{}
	bloom             *bloom.BloomFilter
	lru               *lru.Cache[string, struct{}]
	mutex             sync.RWMutex
	maxTracks         int
	falsePositiveRate float64
}

// NewExclusionSet creates an exclusion set holding at most maxTracks
// identifiers with the given Bloom false positive rate.
func NewExclusionSet(maxTracks int, falsePositiveRate float64) *ExclusionSet {
	lruCache, _ := lru.New[string, struct{}](maxTracks)

	return &ExclusionSet{
		trackIDs:          make(map[string]struct{}),
		bloom:             bloom.NewWithEstimates(uint(maxTracks), falsePositiveRate),
		lru:               lruCache,
		maxTracks:         maxTracks,
		falsePositiveRate: falsePositiveRate,
	}
}

// Has checks whether a track identifier is excluded.
func (es *ExclusionSet) Has(trackID string) bool {
	es.mutex.RLock()
	defer es.mutex.RUnlock()

	if !es.bloom.TestString(trackID) {
		return false
	}

	_, exists := es.trackIDs[trackID]
	return exists
}

// Add excludes a track identifier.
func (es *ExclusionSet) Add(trackID string) {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	if _, exists := es.trackIDs[trackID]; exists {
		return
	}

	es.trackIDs[trackID] = struct{}{}
	es.bloom.AddString(trackID)
	es.lru.Add(trackID, struct{}{})

	if len(es.trackIDs) > es.maxTracks {
		es.evictOldest()
	}
}

// Load merges the provided identifiers into the set without clearing it, so
// the ledger's recent window and per-request seen IDs can share one set.
func (es *ExclusionSet) Load(trackIDs []string) {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	for _, trackID := range trackIDs {
		if trackID == "" {
			continue
		}
		if _, exists := es.trackIDs[trackID]; exists {
			continue
		}
		es.trackIDs[trackID] = struct{}{}
		es.bloom.AddString(trackID)
		es.lru.Add(trackID, struct{}{})
	}

	for len(es.trackIDs) > es.maxTracks {
		es.evictOldest()
	}
}

// Size returns the number of excluded identifiers.
func (es *ExclusionSet) Size() int {
	es.mutex.RLock()
	defer es.mutex.RUnlock()
	return len(es.trackIDs)
}

// Clear removes all identifiers.
func (es *ExclusionSet) Clear() {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	es.trackIDs = make(map[string]struct{})
	es.bloom = bloom.NewWithEstimates(uint(es.maxTracks), es.falsePositiveRate)
	es.lru.Purge()
}

func (es *ExclusionSet) evictOldest() {
	oldestKey, _, ok := es.lru.GetOldest()
	if !ok {
		return
	}

	delete(es.trackIDs, oldestKey)
	es.lru.Remove(oldestKey)
	// Bloom filters don't support removal; a stale positive still falls
	// through to the exact map.
}
