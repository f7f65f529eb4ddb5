package utxo

import (
	"github.com/google/btree"

	"github.com/copernet/chainstate/model/coins"
	"github.com/copernet/chainstate/model/shielded"
	"github.com/copernet/chainstate/util"
)

const memViewDegree = 32

type coinsItem struct {
	txid  util.Hash
	coins *coins.Coins
}

func coinsItemLess(a, b coinsItem) bool {
	return a.txid.Cmp(&b.txid) < 0
}

// MemCoinsView is a CoinsView held entirely in memory, with the same
// storage rules as CoinsDB: pruned records and absent nullifiers are not
// kept, and the empty root is never stored.
type MemCoinsView struct {
	coins       *btree.BTreeG[coinsItem]
	bestBlock   util.Hash
	bestAnchors [shielded.PoolCount]util.Hash
	anchors     [shielded.PoolCount]map[util.Hash]shielded.Tree
	nullifiers  [shielded.PoolCount]map[util.Hash]struct{}
}

func NewMemCoinsView() *MemCoinsView {
	view := &MemCoinsView{
		coins: btree.NewG[coinsItem](memViewDegree, coinsItemLess),
	}
	for _, pool := range shielded.Pools {
		view.bestAnchors[pool] = shielded.EmptyRoot(pool)
		view.anchors[pool] = make(map[util.Hash]shielded.Tree)
		view.nullifiers[pool] = make(map[util.Hash]struct{})
	}
	return view
}

func (view *MemCoinsView) GetCoins(txid *util.Hash) (*coins.Coins, bool) {
	item, ok := view.coins.Get(coinsItem{txid: *txid})
	if !ok {
		return nil, false
	}
	return item.coins.Clone(), true
}

func (view *MemCoinsView) HaveCoins(txid *util.Hash) bool {
	return view.coins.Has(coinsItem{txid: *txid})
}

func (view *MemCoinsView) GetBestBlock() util.Hash {
	return view.bestBlock
}

func (view *MemCoinsView) GetBestAnchor(pool shielded.Pool) util.Hash {
	return view.bestAnchors[pool]
}

func (view *MemCoinsView) GetAnchorAt(root *util.Hash, pool shielded.Pool) (shielded.Tree, bool) {
	if shielded.IsEmptyRoot(root, pool) {
		return shielded.NewEmptyTree(pool), true
	}
	tree, ok := view.anchors[pool][*root]
	if !ok {
		return nil, false
	}
	return tree.Clone(), true
}

func (view *MemCoinsView) GetNullifier(nf *util.Hash, pool shielded.Pool) bool {
	_, ok := view.nullifiers[pool][*nf]
	return ok
}

func (view *MemCoinsView) BatchWrite(batch *CacheBatch) error {
	for txid, entry := range batch.Coins {
		if !entry.Dirty {
			continue
		}
		if entry.Value.IsPruned() {
			view.coins.Delete(coinsItem{txid: txid})
		} else {
			view.coins.ReplaceOrInsert(coinsItem{txid: txid, coins: entry.Value.Clone()})
		}
	}
	for _, pool := range shielded.Pools {
		for root, entry := range batch.Anchors[pool] {
			if !entry.Dirty || shielded.IsEmptyRoot(&root, pool) {
				continue
			}
			if entry.Value == nil {
				delete(view.anchors[pool], root)
			} else {
				view.anchors[pool][root] = entry.Value.Clone()
			}
		}
		for nf, entry := range batch.Nullifiers[pool] {
			if !entry.Dirty {
				continue
			}
			if entry.Value {
				view.nullifiers[pool][nf] = struct{}{}
			} else {
				delete(view.nullifiers[pool], nf)
			}
		}
		if !batch.BestAnchors[pool].IsNull() {
			view.bestAnchors[pool] = batch.BestAnchors[pool]
		}
	}
	if !batch.BestBlock.IsNull() {
		view.bestBlock = batch.BestBlock
	}
	return nil
}

// ForEachCoins calls fn for every record in txid order until fn returns
// false. The records must not be modified.
func (view *MemCoinsView) ForEachCoins(fn func(txid *util.Hash, c *coins.Coins) bool) {
	view.coins.Ascend(func(item coinsItem) bool {
		return fn(&item.txid, item.coins)
	})
}

// Len returns the number of stored records.
func (view *MemCoinsView) Len() int {
	return view.coins.Len()
}

func (view *MemCoinsView) GetStats() *CoinsStats {
	builder := newStatsBuilder(view.bestBlock)
	view.ForEachCoins(func(txid *util.Hash, c *coins.Coins) bool {
		builder.add(txid, c, c.Bytes())
		return true
	})
	return builder.finish()
}
