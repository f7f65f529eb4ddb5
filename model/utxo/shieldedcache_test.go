package utxo

import (
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copernet/chainstate/model/shielded"
	"github.com/copernet/chainstate/util"
)

func setNullifiers(cache *CoinsViewCache, nfs [shielded.PoolCount]util.Hash, entered bool) {
	for _, pool := range shielded.Pools {
		cache.SetNullifier(&nfs[pool], pool, entered)
	}
}

func checkNullifiers(t *testing.T, cache *CoinsViewCache, nfs [shielded.PoolCount]util.Hash, entered bool) {
	t.Helper()
	for _, pool := range shielded.Pools {
		assert.Equal(t, entered, cache.GetNullifier(&nfs[pool], pool), "%s nullifier", pool)
	}
}

func TestNullifierRegression(t *testing.T) {
	rng := util.NewFastRandomContext(true)
	randomNullifiers := func() [shielded.PoolCount]util.Hash {
		return [shielded.PoolCount]util.Hash{rng.RandHash(), rng.RandHash()}
	}

	t.Run("add-remove without flush", func(t *testing.T) {
		cache1 := NewCoinsViewCache(newTestCoinsView(rng))
		nfs := randomNullifiers()
		setNullifiers(cache1, nfs, true)
		checkNullifiers(t, cache1, nfs, true)
		require.NoError(t, cache1.Flush())

		setNullifiers(cache1, nfs, false)
		checkNullifiers(t, cache1, nfs, false)
	})

	t.Run("add-remove with flush", func(t *testing.T) {
		base := newTestCoinsView(rng)
		cache1 := NewCoinsViewCache(base)
		nfs := randomNullifiers()
		setNullifiers(cache1, nfs, true)
		checkNullifiers(t, cache1, nfs, true)
		require.NoError(t, cache1.Flush())

		setNullifiers(cache1, nfs, false)
		require.NoError(t, cache1.Flush())
		checkNullifiers(t, cache1, nfs, false)
		for _, pool := range shielded.Pools {
			assert.False(t, base.GetNullifier(&nfs[pool], pool))
		}
	})

	t.Run("remove from parent", func(t *testing.T) {
		cache1 := NewCoinsViewCache(newTestCoinsView(rng))
		nfs := randomNullifiers()
		setNullifiers(cache1, nfs, true)
		checkNullifiers(t, cache1, nfs, true)
		require.NoError(t, cache1.Flush())

		cache2 := NewCoinsViewCache(cache1)
		checkNullifiers(t, cache2, nfs, true)
		setNullifiers(cache1, nfs, false)
		require.NoError(t, cache2.Flush())

		checkNullifiers(t, cache1, nfs, false)
	})

	t.Run("remove from child", func(t *testing.T) {
		cache1 := NewCoinsViewCache(newTestCoinsView(rng))
		nfs := randomNullifiers()
		setNullifiers(cache1, nfs, true)
		require.NoError(t, cache1.Flush())

		cache2 := NewCoinsViewCache(cache1)
		setNullifiers(cache2, nfs, false)
		require.NoError(t, cache2.Flush())

		checkNullifiers(t, cache1, nfs, false)
	})
}

func TestSetNullifierFlags(t *testing.T) {
	ctrl := gomock.NewController(t)
	base := NewMockCoinsView(ctrl)
	unknown := util.Hash{0x01}
	known := util.Hash{0x02}
	base.EXPECT().GetNullifier(&unknown, shielded.Sapling).Return(false).Times(2)
	base.EXPECT().GetNullifier(&known, shielded.Sapling).Return(true).Times(1)

	cache := NewCoinsViewCache(base)
	cache.SetNullifier(&unknown, shielded.Sapling, true)
	entry, ok := cache.cacheNullifiers[shielded.Sapling].lookup(&unknown)
	require.True(t, ok)
	assert.Equal(t, CacheEntry[bool]{Value: true, Dirty: true, Fresh: true}, *entry)

	// Unset again before any flush: the parent never hears of it.
	cache.SetNullifier(&unknown, shielded.Sapling, false)
	_, ok = cache.cacheNullifiers[shielded.Sapling].lookup(&unknown)
	assert.False(t, ok)
	// Reading it again pulls up a clean entry.
	assert.False(t, cache.GetNullifier(&unknown, shielded.Sapling))
	entry, ok = cache.cacheNullifiers[shielded.Sapling].lookup(&unknown)
	require.True(t, ok)
	assert.Equal(t, CacheEntry[bool]{Fresh: true}, *entry)

	cache.SetNullifier(&known, shielded.Sapling, false)
	entry, ok = cache.cacheNullifiers[shielded.Sapling].lookup(&known)
	require.True(t, ok)
	assert.Equal(t, CacheEntry[bool]{Dirty: true}, *entry)

	base.EXPECT().BatchWrite(gomock.Any()).DoAndReturn(func(batch *CacheBatch) error {
		assert.Equal(t, 1, batch.DirtyCount())
		require.Contains(t, batch.Nullifiers[shielded.Sapling], known)
		assert.True(t, batch.Nullifiers[shielded.Sapling][known].Dirty)
		assert.False(t, batch.Nullifiers[shielded.Sapling][unknown].Dirty)
		assert.Empty(t, batch.Nullifiers[shielded.Sprout])
		return nil
	})
	require.NoError(t, cache.Flush())
}

func TestNullifierPoolsAreSeparate(t *testing.T) {
	cache := NewCoinsViewCache(NewMemCoinsView())
	nf := util.Hash{0x10}
	cache.SetNullifier(&nf, shielded.Sprout, true)
	assert.True(t, cache.GetNullifier(&nf, shielded.Sprout))
	assert.False(t, cache.GetNullifier(&nf, shielded.Sapling))
	assert.Panics(t, func() { cache.GetNullifier(&nf, shielded.Pool(7)) })
}

func TestBestAnchorDefaultsToEmptyRoot(t *testing.T) {
	cache := NewCoinsViewCache(NewMemCoinsView())
	for _, pool := range shielded.Pools {
		root := shielded.EmptyRoot(pool)
		assert.Equal(t, root, cache.GetBestAnchor(pool))
		tree, ok := cache.GetAnchorAt(&root, pool)
		require.True(t, ok)
		assert.Equal(t, uint64(0), tree.Size())
		assert.Equal(t, pool, tree.Pool())
	}
	assert.NotEqual(t, shielded.EmptyRoot(shielded.Sprout), shielded.EmptyRoot(shielded.Sapling))
}

func TestAnchorPopRegression(t *testing.T) {
	for _, pool := range shielded.Pools {
		pool := pool
		t.Run(pool.String(), func(t *testing.T) {
			rng := util.NewFastRandomContext(true)

			t.Run("flush between push and pop", func(t *testing.T) {
				cache1 := NewCoinsViewCache(newTestCoinsView(rng))
				tree := randomTree(t, rng, pool, 1)
				root := tree.Root()

				cache1.PushAnchor(tree)
				require.NoError(t, cache1.Flush())
				cache1.PopAnchor(shielded.EmptyRoot(pool), pool)
				require.NoError(t, cache1.Flush())
				cache1.PushAnchor(tree)
				require.NoError(t, cache1.Flush())

				check, ok := cache1.GetAnchorAt(&root, pool)
				require.True(t, ok)
				assert.Equal(t, root, check.Root())
				assert.Equal(t, root, cache1.GetBestAnchor(pool))
			})

			t.Run("push again in a child before flush", func(t *testing.T) {
				cache1 := NewCoinsViewCache(newTestCoinsView(rng))
				tree := randomTree(t, rng, pool, 1)
				root := tree.Root()

				cache1.PushAnchor(tree)
				require.NoError(t, cache1.Flush())
				cache1.PopAnchor(shielded.EmptyRoot(pool), pool)

				cache2 := NewCoinsViewCache(cache1)
				cache2.PushAnchor(tree)
				require.NoError(t, cache2.Flush())

				check, ok := cache1.GetAnchorAt(&root, pool)
				require.True(t, ok)
				assert.Equal(t, root, check.Root())

				require.NoError(t, cache1.Flush())
				check, ok = cache1.GetAnchorAt(&root, pool)
				require.True(t, ok)
				assert.Equal(t, root, check.Root())
				assert.Equal(t, root, cache1.GetBestAnchor(pool))
			})
		})
	}
}

func TestPopAnchorKeepsSnapshots(t *testing.T) {
	rng := util.NewFastRandomContext(true)
	pool := shielded.Sapling
	base := NewMemCoinsView()
	cache := NewCoinsViewCache(base)

	tree := randomTree(t, rng, pool, 2)
	first := tree.Root()
	cache.PushAnchor(tree)
	require.NoError(t, tree.Append(rng.RandHash()))
	second := tree.Root()
	cache.PushAnchor(tree)
	assert.Equal(t, second, cache.GetBestAnchor(pool))

	cache.PopAnchor(first, pool)
	assert.Equal(t, first, cache.GetBestAnchor(pool))
	_, ok := cache.GetAnchorAt(&second, pool)
	assert.True(t, ok)

	require.NoError(t, cache.Flush())
	assert.Equal(t, first, base.GetBestAnchor(pool))
	for _, root := range []util.Hash{first, second} {
		root := root
		stored, ok := base.GetAnchorAt(&root, pool)
		require.True(t, ok)
		assert.Equal(t, root, stored.Root())
	}
}

func TestPushAnchorFlags(t *testing.T) {
	rng := util.NewFastRandomContext(true)
	pool := shielded.Sprout
	base := NewMemCoinsView()

	known := randomTree(t, rng, pool, 3)
	knownRoot := known.Root()
	seed := NewCoinsViewCache(base)
	seed.PushAnchor(known)
	require.NoError(t, seed.Flush())
	seed.PopAnchor(shielded.EmptyRoot(pool), pool)
	require.NoError(t, seed.Flush())

	cache := NewCoinsViewCache(base)
	cache.PushAnchor(known)
	entry, ok := cache.cacheAnchors[pool].lookup(&knownRoot)
	require.True(t, ok)
	assert.True(t, entry.Dirty)
	assert.False(t, entry.Fresh)

	fresh := randomTree(t, rng, pool, 4)
	freshRoot := fresh.Root()
	cache.PushAnchor(fresh)
	entry, ok = cache.cacheAnchors[pool].lookup(&freshRoot)
	require.True(t, ok)
	assert.True(t, entry.Dirty)
	assert.True(t, entry.Fresh)
	checkCacheUsage(t, cache)

	// Pushing the current best anchor again changes nothing.
	before := cache.DynamicMemoryUsage()
	cache.PushAnchor(fresh)
	assert.Equal(t, before, cache.DynamicMemoryUsage())
	assert.Equal(t, freshRoot, cache.GetBestAnchor(pool))
}

func TestAnchorSnapshotsAreIndependent(t *testing.T) {
	rng := util.NewFastRandomContext(true)
	pool := shielded.Sapling
	cache := NewCoinsViewCache(NewMemCoinsView())

	tree := randomTree(t, rng, pool, 5)
	root := tree.Root()
	cache.PushAnchor(tree)

	// Changing the pushed tree or a returned snapshot leaves the cache alone.
	require.NoError(t, tree.Append(rng.RandHash()))
	snapshot, ok := cache.GetAnchorAt(&root, pool)
	require.True(t, ok)
	require.NoError(t, snapshot.Append(rng.RandHash()))

	again, ok := cache.GetAnchorAt(&root, pool)
	require.True(t, ok)
	assert.Equal(t, root, again.Root())
	assert.Equal(t, uint64(5), again.Size())
}

func TestAnchorsFlushThroughLayers(t *testing.T) {
	rng := util.NewFastRandomContext(true)
	base := NewMemCoinsView()
	cache1 := NewCoinsViewCache(base)
	cache2 := NewCoinsViewCache(cache1)

	roots := [shielded.PoolCount]util.Hash{}
	for _, pool := range shielded.Pools {
		tree := randomTree(t, rng, pool, 1+int(rng.RandRange(6)))
		roots[pool] = tree.Root()
		cache2.PushAnchor(tree)
	}
	require.NoError(t, cache2.Flush())
	for _, pool := range shielded.Pools {
		assert.Equal(t, roots[pool], cache1.GetBestAnchor(pool))
		assert.Equal(t, shielded.EmptyRoot(pool), base.GetBestAnchor(pool))
	}
	require.NoError(t, cache1.Flush())
	for _, pool := range shielded.Pools {
		assert.Equal(t, roots[pool], base.GetBestAnchor(pool))
		_, ok := base.GetAnchorAt(&roots[pool], pool)
		assert.True(t, ok)
	}

	unknown := rng.RandHash()
	_, ok := NewCoinsViewCache(base).GetAnchorAt(&unknown, shielded.Sprout)
	assert.False(t, ok)
}
