package utxo

import (
	"github.com/copernet/chainstate/model/coins"
	"github.com/copernet/chainstate/model/shielded"
	"github.com/copernet/chainstate/util"
)

// CacheEntry is a cached value and its bookkeeping flags.
//
// Dirty: the value differs from what the parent holds.
// Fresh: the parent holds no value (or an absent one) for the key, so the
// entry can be dropped instead of written back once it becomes absent.
type CacheEntry[V any] struct {
	Value V
	Dirty bool
	Fresh bool
}

type (
	CoinsMap      = map[util.Hash]*CacheEntry[*coins.Coins]
	AnchorsMap    = map[util.Hash]*CacheEntry[shielded.Tree]
	NullifiersMap = map[util.Hash]*CacheEntry[bool]
)

// CacheBatch is the payload of one BatchWrite. A null BestBlock or best
// anchor leaves the receiver's value untouched.
type CacheBatch struct {
	Coins       CoinsMap
	BestBlock   util.Hash
	BestAnchors [shielded.PoolCount]util.Hash
	Anchors     [shielded.PoolCount]AnchorsMap
	Nullifiers  [shielded.PoolCount]NullifiersMap
}

func NewCacheBatch() *CacheBatch {
	batch := &CacheBatch{Coins: make(CoinsMap)}
	for _, pool := range shielded.Pools {
		batch.Anchors[pool] = make(AnchorsMap)
		batch.Nullifiers[pool] = make(NullifiersMap)
	}
	return batch
}

// DirtyCount returns the number of entries the receiver has to apply.
func (batch *CacheBatch) DirtyCount() int {
	count := countDirty(batch.Coins)
	for _, pool := range shielded.Pools {
		count += countDirty(batch.Anchors[pool])
		count += countDirty(batch.Nullifiers[pool])
	}
	return count
}

func countDirty[V any](entries map[util.Hash]*CacheEntry[V]) int {
	count := 0
	for _, entry := range entries {
		if entry.Dirty {
			count++
		}
	}
	return count
}
