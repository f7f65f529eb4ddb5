package utxo

import (
	"github.com/pkg/errors"

	"github.com/copernet/chainstate/errcode"
	"github.com/copernet/chainstate/log"
	"github.com/copernet/chainstate/model/coins"
	"github.com/copernet/chainstate/model/shielded"
	"github.com/copernet/chainstate/util"
)

// CoinsViewCache is one in-memory layer over a parent CoinsView. Changes
// reach the parent only through Flush; dropping the layer (or calling
// Discard) rolls them back. A layer is not safe for concurrent use.
type CoinsViewCache struct {
	base            CoinsView
	hashBlock       util.Hash
	bestAnchors     [shielded.PoolCount]util.Hash
	cacheCoins      *keyedCache[*coins.Coins]
	cacheAnchors    [shielded.PoolCount]*keyedCache[shielded.Tree]
	cacheNullifiers [shielded.PoolCount]*keyedCache[bool]
	hasModifier     bool
}

func coinsAbsent(c *coins.Coins) bool {
	return c.IsPruned()
}

func coinsUsage(c *coins.Coins) int64 {
	return c.DynamicMemoryUsage()
}

func anchorAbsent(tree shielded.Tree) bool {
	return tree == nil
}

func anchorUsage(tree shielded.Tree) int64 {
	if tree == nil {
		return 0
	}
	return tree.DynamicMemoryUsage()
}

func nullifierAbsent(entered bool) bool {
	return !entered
}

func nullifierUsage(bool) int64 {
	return 0
}

func NewCoinsViewCache(base CoinsView) *CoinsViewCache {
	c := &CoinsViewCache{
		base:       base,
		cacheCoins: newKeyedCache("base transaction with spendable outputs", coinsAbsent, coinsUsage),
	}
	for _, pool := range shielded.Pools {
		c.cacheAnchors[pool] = newKeyedCache(pool.String()+" anchor", anchorAbsent, anchorUsage)
		c.cacheNullifiers[pool] = newKeyedCache(pool.String()+" nullifier", nullifierAbsent, nullifierUsage)
	}
	return c
}

func (coinsViewCache *CoinsViewCache) fetchCoins(txid *util.Hash) (*CacheEntry[*coins.Coins], bool) {
	return coinsViewCache.cacheCoins.fetch(txid, func() (*coins.Coins, bool) {
		return coinsViewCache.base.GetCoins(txid)
	})
}

// AccessCoins returns the record for txid without copying it, or
// coins.Pruned when no layer knows it. The result must not be modified.
func (coinsViewCache *CoinsViewCache) AccessCoins(txid *util.Hash) *coins.Coins {
	entry, ok := coinsViewCache.fetchCoins(txid)
	if !ok {
		return coins.Pruned
	}
	return entry.Value
}

func (coinsViewCache *CoinsViewCache) GetCoins(txid *util.Hash) (*coins.Coins, bool) {
	entry, ok := coinsViewCache.fetchCoins(txid)
	if !ok {
		return nil, false
	}
	return entry.Value.Clone(), true
}

func (coinsViewCache *CoinsViewCache) HaveCoins(txid *util.Hash) bool {
	entry, ok := coinsViewCache.fetchCoins(txid)
	return ok && !entry.Value.IsPruned()
}

// HaveCoinsInCache reports whether this layer holds an entry for txid,
// without consulting the parent.
func (coinsViewCache *CoinsViewCache) HaveCoinsInCache(txid *util.Hash) bool {
	_, ok := coinsViewCache.cacheCoins.lookup(txid)
	return ok
}

func (coinsViewCache *CoinsViewCache) acquireModifier() {
	if coinsViewCache.hasModifier {
		panic("CoinsModifier is already outstanding on this cache")
	}
	coinsViewCache.hasModifier = true
}

// ModifyCoins returns a handle to change the record for txid in place. The
// handle must be released before the cache is used again.
func (coinsViewCache *CoinsViewCache) ModifyCoins(txid *util.Hash) *CoinsModifier {
	coinsViewCache.acquireModifier()
	entry, ok := coinsViewCache.fetchCoins(txid)
	if !ok {
		// The parent does not know the record; the entry starts out fresh.
		entry = &CacheEntry[*coins.Coins]{Value: &coins.Coins{}, Fresh: true}
		coinsViewCache.cacheCoins.insert(txid, entry)
	}
	entry.Dirty = true
	return newCoinsModifier(coinsViewCache, txid, entry)
}

// ModifyNewCoins is ModifyCoins for a txid that cannot exist below this
// layer. The parent is not consulted and the record starts out empty.
func (coinsViewCache *CoinsViewCache) ModifyNewCoins(txid *util.Hash) *CoinsModifier {
	coinsViewCache.acquireModifier()
	entry, ok := coinsViewCache.cacheCoins.lookup(txid)
	if !ok {
		entry = &CacheEntry[*coins.Coins]{Value: &coins.Coins{}}
		coinsViewCache.cacheCoins.insert(txid, entry)
	}
	modifier := newCoinsModifier(coinsViewCache, txid, entry)
	entry.Value.Clear()
	entry.Dirty = true
	entry.Fresh = true
	return modifier
}

func (coinsViewCache *CoinsViewCache) nullifiers(pool shielded.Pool) *keyedCache[bool] {
	if !pool.IsValid() {
		panic("unknown shielded pool " + pool.String())
	}
	return coinsViewCache.cacheNullifiers[pool]
}

func (coinsViewCache *CoinsViewCache) anchors(pool shielded.Pool) *keyedCache[shielded.Tree] {
	if !pool.IsValid() {
		panic("unknown shielded pool " + pool.String())
	}
	return coinsViewCache.cacheAnchors[pool]
}

func (coinsViewCache *CoinsViewCache) fetchNullifier(nf *util.Hash, pool shielded.Pool) *CacheEntry[bool] {
	entry, _ := coinsViewCache.nullifiers(pool).fetch(nf, func() (bool, bool) {
		return coinsViewCache.base.GetNullifier(nf, pool), true
	})
	return entry
}

func (coinsViewCache *CoinsViewCache) GetNullifier(nf *util.Hash, pool shielded.Pool) bool {
	return coinsViewCache.fetchNullifier(nf, pool).Value
}

// SetNullifier records whether nf is spent in pool.
func (coinsViewCache *CoinsViewCache) SetNullifier(nf *util.Hash, pool shielded.Pool, entered bool) {
	entry := coinsViewCache.fetchNullifier(nf, pool)
	coinsViewCache.nullifiers(pool).set(nf, entry, entered)
}

func (coinsViewCache *CoinsViewCache) GetAnchorAt(root *util.Hash, pool shielded.Pool) (shielded.Tree, bool) {
	if shielded.IsEmptyRoot(root, pool) {
		return shielded.NewEmptyTree(pool), true
	}
	entry, ok := coinsViewCache.anchors(pool).fetch(root, func() (shielded.Tree, bool) {
		return coinsViewCache.base.GetAnchorAt(root, pool)
	})
	if !ok || entry.Value == nil {
		return nil, false
	}
	return entry.Value.Clone(), true
}

// PushAnchor stores a snapshot of tree under its root and makes that root
// the best anchor of the tree's pool.
func (coinsViewCache *CoinsViewCache) PushAnchor(tree shielded.Tree) {
	pool := tree.Pool()
	root := tree.Root()
	if coinsViewCache.GetBestAnchor(pool) == root {
		return
	}

	cache := coinsViewCache.anchors(pool)
	entry, ok := cache.lookup(&root)
	if !ok {
		_, known := coinsViewCache.base.GetAnchorAt(&root, pool)
		entry = &CacheEntry[shielded.Tree]{Fresh: !known}
		cache.insert(&root, entry)
	}
	cache.set(&root, entry, tree.Clone())
	coinsViewCache.bestAnchors[pool] = root
}

// PopAnchor moves the best anchor of pool back to root. Stored snapshots
// are kept, so a root popped here can be pushed again later.
func (coinsViewCache *CoinsViewCache) PopAnchor(root util.Hash, pool shielded.Pool) {
	if !pool.IsValid() {
		panic("unknown shielded pool " + pool.String())
	}
	coinsViewCache.bestAnchors[pool] = root
}

func (coinsViewCache *CoinsViewCache) GetBestAnchor(pool shielded.Pool) util.Hash {
	if !pool.IsValid() {
		panic("unknown shielded pool " + pool.String())
	}
	if coinsViewCache.bestAnchors[pool].IsNull() {
		return coinsViewCache.base.GetBestAnchor(pool)
	}
	return coinsViewCache.bestAnchors[pool]
}

// GetBestBlock returns this layer's override or, without one, the parent's
// best block. Reading never creates an override.
func (coinsViewCache *CoinsViewCache) GetBestBlock() util.Hash {
	if coinsViewCache.hashBlock.IsNull() {
		return coinsViewCache.base.GetBestBlock()
	}
	return coinsViewCache.hashBlock
}

func (coinsViewCache *CoinsViewCache) SetBestBlock(hash util.Hash) {
	coinsViewCache.hashBlock = hash
}

// BatchWrite merges the dirty entries of a child layer into this one.
func (coinsViewCache *CoinsViewCache) BatchWrite(batch *CacheBatch) error {
	if coinsViewCache.hasModifier {
		panic("BatchWrite called while a CoinsModifier is outstanding")
	}
	coinsViewCache.cacheCoins.merge(batch.Coins)
	for _, pool := range shielded.Pools {
		coinsViewCache.cacheAnchors[pool].merge(batch.Anchors[pool])
		coinsViewCache.cacheNullifiers[pool].merge(batch.Nullifiers[pool])
		if !batch.BestAnchors[pool].IsNull() {
			coinsViewCache.bestAnchors[pool] = batch.BestAnchors[pool]
		}
	}
	if !batch.BestBlock.IsNull() {
		coinsViewCache.hashBlock = batch.BestBlock
	}
	return nil
}

// takeBatch moves all local state into a CacheBatch and resets the layer.
func (coinsViewCache *CoinsViewCache) takeBatch() *CacheBatch {
	batch := &CacheBatch{
		Coins:       coinsViewCache.cacheCoins.take(),
		BestBlock:   coinsViewCache.hashBlock,
		BestAnchors: coinsViewCache.bestAnchors,
	}
	for _, pool := range shielded.Pools {
		batch.Anchors[pool] = coinsViewCache.cacheAnchors[pool].take()
		batch.Nullifiers[pool] = coinsViewCache.cacheNullifiers[pool].take()
	}
	coinsViewCache.hashBlock = util.Hash{}
	coinsViewCache.bestAnchors = [shielded.PoolCount]util.Hash{}
	return batch
}

// Flush pushes every dirty entry to the parent in one BatchWrite and
// empties the layer. The layer is emptied even when the parent fails, so
// its changes are lost in that case.
func (coinsViewCache *CoinsViewCache) Flush() error {
	if coinsViewCache.hasModifier {
		panic("Flush called while a CoinsModifier is outstanding")
	}
	batch := coinsViewCache.takeBatch()
	entries := len(batch.Coins)
	if err := coinsViewCache.base.BatchWrite(batch); err != nil {
		log.Error("flush of %d coin entries failed: %v", entries, err)
		return errors.Wrapf(errcode.New(errcode.SystemErrorWhileFlushing), "flush cache: %v", err)
	}
	log.Print("utxo", "debug", "flushed %d coin entries, best block %s", entries, batch.BestBlock.String())
	return nil
}

// Discard drops every local change. The parent is not touched.
func (coinsViewCache *CoinsViewCache) Discard() {
	if coinsViewCache.hasModifier {
		panic("Discard called while a CoinsModifier is outstanding")
	}
	coinsViewCache.takeBatch()
}

// UnCache removes a clean entry that the parent also holds, to reclaim
// memory. Entries carrying changes are kept.
func (coinsViewCache *CoinsViewCache) UnCache(txid *util.Hash) {
	entry, ok := coinsViewCache.cacheCoins.lookup(txid)
	if ok && !entry.Dirty && !entry.Fresh {
		coinsViewCache.cacheCoins.remove(txid)
	}
}

// GetCacheSize returns the number of cached coin records.
func (coinsViewCache *CoinsViewCache) GetCacheSize() int {
	return coinsViewCache.cacheCoins.count()
}

func (coinsViewCache *CoinsViewCache) DynamicMemoryUsage() int64 {
	usage := coinsViewCache.cacheCoins.dynamicMemoryUsage()
	for _, pool := range shielded.Pools {
		usage += coinsViewCache.cacheAnchors[pool].dynamicMemoryUsage()
		usage += coinsViewCache.cacheNullifiers[pool].dynamicMemoryUsage()
	}
	return usage
}
