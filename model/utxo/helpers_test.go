package utxo

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"

	"github.com/copernet/chainstate/model/coins"
	"github.com/copernet/chainstate/model/shielded"
	"github.com/copernet/chainstate/util"
)

// testCoinsView is a map-backed bottom store that, like a sloppy database,
// sometimes keeps pruned records around instead of erasing them.
type testCoinsView struct {
	rng         *util.FastRandomContext
	bestBlock   util.Hash
	bestAnchors [shielded.PoolCount]util.Hash
	coins       map[util.Hash]*coins.Coins
	anchors     [shielded.PoolCount]map[util.Hash]shielded.Tree
	nullifiers  [shielded.PoolCount]map[util.Hash]bool
	writes      int
}

func newTestCoinsView(rng *util.FastRandomContext) *testCoinsView {
	view := &testCoinsView{
		rng:   rng,
		coins: make(map[util.Hash]*coins.Coins),
	}
	for _, pool := range shielded.Pools {
		view.bestAnchors[pool] = shielded.EmptyRoot(pool)
		view.anchors[pool] = make(map[util.Hash]shielded.Tree)
		view.nullifiers[pool] = make(map[util.Hash]bool)
	}
	return view
}

func (view *testCoinsView) GetCoins(txid *util.Hash) (*coins.Coins, bool) {
	c, ok := view.coins[*txid]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

func (view *testCoinsView) HaveCoins(txid *util.Hash) bool {
	c, ok := view.coins[*txid]
	return ok && !c.IsPruned()
}

func (view *testCoinsView) GetBestBlock() util.Hash {
	return view.bestBlock
}

func (view *testCoinsView) GetBestAnchor(pool shielded.Pool) util.Hash {
	return view.bestAnchors[pool]
}

func (view *testCoinsView) GetAnchorAt(root *util.Hash, pool shielded.Pool) (shielded.Tree, bool) {
	if shielded.IsEmptyRoot(root, pool) {
		return shielded.NewEmptyTree(pool), true
	}
	tree, ok := view.anchors[pool][*root]
	if !ok {
		return nil, false
	}
	return tree.Clone(), true
}

func (view *testCoinsView) GetNullifier(nf *util.Hash, pool shielded.Pool) bool {
	return view.nullifiers[pool][*nf]
}

func (view *testCoinsView) BatchWrite(batch *CacheBatch) error {
	view.writes++
	for txid, entry := range batch.Coins {
		if !entry.Dirty {
			continue
		}
		view.coins[txid] = entry.Value.Clone()
		if entry.Value.IsPruned() && view.rng.RandRange(3) == 0 {
			// Randomly delete empty entries on write.
			delete(view.coins, txid)
		}
	}
	for _, pool := range shielded.Pools {
		for root, entry := range batch.Anchors[pool] {
			if !entry.Dirty {
				continue
			}
			if entry.Value == nil {
				delete(view.anchors[pool], root)
			} else {
				view.anchors[pool][root] = entry.Value.Clone()
			}
		}
		for nf, entry := range batch.Nullifiers[pool] {
			if entry.Dirty {
				view.nullifiers[pool][nf] = entry.Value
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

// checkCacheUsage recomputes the memory accounting of every namespace.
func checkCacheUsage(t *testing.T, cache *CoinsViewCache) {
	t.Helper()
	var usage int64
	for _, entry := range cache.cacheCoins.entries {
		usage += entry.Value.DynamicMemoryUsage()
	}
	assert.Equal(t, usage, cache.cacheCoins.cachedUsage, "coins usage")
	for _, pool := range shielded.Pools {
		usage = 0
		for _, entry := range cache.cacheAnchors[pool].entries {
			usage += anchorUsage(entry.Value)
		}
		assert.Equal(t, usage, cache.cacheAnchors[pool].cachedUsage, "%s anchor usage", pool)
		assert.Equal(t, int64(0), cache.cacheNullifiers[pool].cachedUsage)
	}
}

func randomCoins(rng *util.FastRandomContext, outputs int) *coins.Coins {
	outs := make([]coins.TxOut, outputs)
	for i := range outs {
		script := make([]byte, 1+rng.RandRange(24))
		for j := range script {
			script[j] = byte(rng.Rand32())
		}
		outs[i] = coins.NewTxOut(int64(rng.Rand32()), script)
	}
	return coins.NewCoins(int32(rng.RandRange(4)+1), int32(rng.RandRange(500000)), rng.RandRange(10) == 0, outs)
}

func randomTree(t *testing.T, rng *util.FastRandomContext, pool shielded.Pool, leaves int) shielded.Tree {
	t.Helper()
	tree := shielded.NewEmptyTree(pool)
	for i := 0; i < leaves; i++ {
		if err := tree.Append(rng.RandHash()); err != nil {
			t.Fatal(err)
		}
	}
	return tree
}

// putCoins writes c as the record of txid through a modifier.
func putCoins(cache *CoinsViewCache, txid *util.Hash, c *coins.Coins) {
	modifier := cache.ModifyCoins(txid)
	*modifier.Coins() = *c.Clone()
	modifier.Release()
}

func assertCoinsEqual(t *testing.T, expected, actual *coins.Coins) {
	t.Helper()
	if !expected.IsEqual(actual) {
		t.Errorf("coins mismatch\nexpected: %s\nactual: %s", spew.Sdump(expected), spew.Sdump(actual))
	}
}
