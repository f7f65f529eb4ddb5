package utxo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/copernet/chainstate/util"
)

func newBoolCache() *keyedCache[bool] {
	return newKeyedCache("test", nullifierAbsent, func(bool) int64 { return 1 })
}

type entryState struct {
	exists bool
	entry  CacheEntry[bool]
}

func TestKeyedCacheMerge(t *testing.T) {
	key := util.Hash{0xab}
	missing := entryState{}
	state := func(value, dirty, fresh bool) entryState {
		return entryState{exists: true, entry: CacheEntry[bool]{Value: value, Dirty: dirty, Fresh: fresh}}
	}

	tests := []struct {
		name   string
		parent entryState
		child  CacheEntry[bool]
		want   entryState
	}{
		{"clean child is ignored", missing, CacheEntry[bool]{Value: true}, missing},
		{"clean child does not touch parent", state(true, false, false), CacheEntry[bool]{Value: false}, state(true, false, false)},
		{"fresh absent child never reaches parent", missing, CacheEntry[bool]{Dirty: true, Fresh: true}, missing},
		{"new value moves up fresh", missing, CacheEntry[bool]{Value: true, Dirty: true, Fresh: true}, state(true, true, true)},
		{"tombstone moves up", missing, CacheEntry[bool]{Dirty: true}, state(false, true, false)},
		{"fresh parent drops deleted key", state(true, true, true), CacheEntry[bool]{Dirty: true}, missing},
		{"overwrite keeps parent not fresh", state(true, false, false), CacheEntry[bool]{Dirty: true}, state(false, true, false)},
		{"overwrite keeps parent fresh", state(false, false, true), CacheEntry[bool]{Value: true, Dirty: true, Fresh: true}, state(true, true, true)},
		{"dirty parent tombstone revived", state(false, true, false), CacheEntry[bool]{Value: true, Dirty: true, Fresh: true}, state(true, true, false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := newBoolCache()
			if tt.parent.exists {
				entry := tt.parent.entry
				parent.insert(&key, &entry)
			}
			child := tt.child
			parent.merge(map[util.Hash]*CacheEntry[bool]{key: &child})

			entry, ok := parent.lookup(&key)
			assert.Equal(t, tt.want.exists, ok)
			if ok {
				assert.Equal(t, tt.want.entry, *entry)
				assert.Equal(t, int64(1), parent.cachedUsage)
			} else {
				assert.Equal(t, int64(0), parent.cachedUsage)
			}
		})
	}
}

func TestKeyedCacheMergeFreshMisapplied(t *testing.T) {
	key := util.Hash{0x01}
	parent := newBoolCache()
	parent.insert(&key, &CacheEntry[bool]{Value: true})

	assert.Panics(t, func() {
		parent.merge(map[util.Hash]*CacheEntry[bool]{
			key: {Value: true, Dirty: true, Fresh: true},
		})
	})
}

func TestKeyedCacheFetch(t *testing.T) {
	key := util.Hash{0x02}
	cache := newBoolCache()

	_, ok := cache.fetch(&key, func() (bool, bool) { return false, false })
	assert.False(t, ok)
	assert.Equal(t, 0, cache.count())

	entry, ok := cache.fetch(&key, func() (bool, bool) { return false, true })
	assert.True(t, ok)
	assert.Equal(t, CacheEntry[bool]{Fresh: true}, *entry)

	// Cached now: the loader is not called again.
	entry, ok = cache.fetch(&key, func() (bool, bool) {
		t.Fatal("loader called for a cached key")
		return false, false
	})
	assert.True(t, ok)
	assert.False(t, entry.Dirty)

	other := util.Hash{0x03}
	entry, _ = cache.fetch(&other, func() (bool, bool) { return true, true })
	assert.Equal(t, CacheEntry[bool]{Value: true}, *entry)
}

func TestKeyedCacheSet(t *testing.T) {
	key := util.Hash{0x04}
	cache := newBoolCache()
	entry, _ := cache.fetch(&key, func() (bool, bool) { return false, true })

	cache.set(&key, entry, true)
	assert.Equal(t, CacheEntry[bool]{Value: true, Dirty: true, Fresh: true}, *entry)
	assert.Equal(t, 1, cache.count())

	// Back to absent while fresh: nothing left to tell the parent.
	cache.set(&key, entry, false)
	assert.Equal(t, 0, cache.count())
	assert.Equal(t, int64(0), cache.cachedUsage)

	known := util.Hash{0x05}
	entry, _ = cache.fetch(&known, func() (bool, bool) { return true, true })
	cache.set(&known, entry, false)
	assert.Equal(t, 1, cache.count())
	assert.Equal(t, CacheEntry[bool]{Dirty: true}, *entry)
}

func TestKeyedCacheTake(t *testing.T) {
	cache := newBoolCache()
	for i := 0; i < 4; i++ {
		key := util.Hash{byte(i)}
		cache.insert(&key, &CacheEntry[bool]{Value: true})
	}
	assert.Equal(t, int64(4*entryMemUsage+4), cache.dynamicMemoryUsage())

	entries := cache.take()
	assert.Len(t, entries, 4)
	assert.Equal(t, 0, cache.count())
	assert.Equal(t, int64(0), cache.dynamicMemoryUsage())
}
