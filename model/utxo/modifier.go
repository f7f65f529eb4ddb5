package utxo

import (
	"github.com/copernet/chainstate/model/coins"
	"github.com/copernet/chainstate/util"
)

// CoinsModifier is a write handle on one cached record. At most one
// modifier can be outstanding per cache; Release must be called when the
// changes are done.
type CoinsModifier struct {
	cache    *CoinsViewCache
	txid     util.Hash
	entry    *CacheEntry[*coins.Coins]
	usage    int64
	released bool
}

func newCoinsModifier(cache *CoinsViewCache, txid *util.Hash, entry *CacheEntry[*coins.Coins]) *CoinsModifier {
	return &CoinsModifier{
		cache: cache,
		txid:  *txid,
		entry: entry,
		usage: entry.Value.DynamicMemoryUsage(),
	}
}

// Coins returns the record to modify. It stays valid until Release.
func (modifier *CoinsModifier) Coins() *coins.Coins {
	if modifier.released {
		panic("CoinsModifier used after Release")
	}
	return modifier.entry.Value
}

// Release trims trailing spent outputs and re-accounts the record. A fresh
// record left pruned is removed from the cache.
func (modifier *CoinsModifier) Release() {
	if modifier.released {
		return
	}
	modifier.released = true
	modifier.cache.hasModifier = false
	modifier.entry.Value.Cleanup()
	modifier.cache.cacheCoins.settle(&modifier.txid, modifier.entry, modifier.usage)
}
