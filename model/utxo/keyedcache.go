package utxo

import (
	"fmt"

	"github.com/copernet/chainstate/util"
)

// entryMemUsage approximates the map bucket, key and CacheEntry overhead of
// one cached key.
const entryMemUsage = 96

// keyedCache is one namespace of a cache layer. Coins, anchors and
// nullifiers share the same flag rules and differ only in value shape.
type keyedCache[V any] struct {
	name        string
	entries     map[util.Hash]*CacheEntry[V]
	isAbsent    func(V) bool
	valueUsage  func(V) int64
	cachedUsage int64
}

func newKeyedCache[V any](name string, isAbsent func(V) bool, valueUsage func(V) int64) *keyedCache[V] {
	return &keyedCache[V]{
		name:       name,
		entries:    make(map[util.Hash]*CacheEntry[V]),
		isAbsent:   isAbsent,
		valueUsage: valueUsage,
	}
}

func (kc *keyedCache[V]) lookup(key *util.Hash) (*CacheEntry[V], bool) {
	entry, ok := kc.entries[*key]
	return entry, ok
}

// fetch returns the local entry for key, pulling it up through load the
// first time the key is seen. Nothing is cached when load finds nothing.
func (kc *keyedCache[V]) fetch(key *util.Hash, load func() (V, bool)) (*CacheEntry[V], bool) {
	if entry, ok := kc.entries[*key]; ok {
		return entry, true
	}
	value, ok := load()
	if !ok {
		return nil, false
	}
	entry := &CacheEntry[V]{Value: value}
	if kc.isAbsent(value) {
		// The parent only has an absent value for this key; we can consider
		// our version as fresh.
		entry.Fresh = true
	}
	kc.insert(key, entry)
	return entry, true
}

func (kc *keyedCache[V]) insert(key *util.Hash, entry *CacheEntry[V]) {
	kc.entries[*key] = entry
	kc.cachedUsage += kc.valueUsage(entry.Value)
}

func (kc *keyedCache[V]) remove(key *util.Hash) {
	entry, ok := kc.entries[*key]
	if !ok {
		return
	}
	kc.cachedUsage -= kc.valueUsage(entry.Value)
	delete(kc.entries, *key)
}

// set overwrites the value of a cached entry and marks it dirty.
func (kc *keyedCache[V]) set(key *util.Hash, entry *CacheEntry[V], value V) {
	oldUsage := kc.valueUsage(entry.Value)
	entry.Value = value
	entry.Dirty = true
	kc.settle(key, entry, oldUsage)
}

// settle re-accounts an entry whose value changed. A fresh entry that became
// absent has nothing to tell the parent and is dropped.
func (kc *keyedCache[V]) settle(key *util.Hash, entry *CacheEntry[V], oldUsage int64) {
	kc.cachedUsage -= oldUsage
	if entry.Fresh && kc.isAbsent(entry.Value) {
		delete(kc.entries, *key)
		return
	}
	kc.cachedUsage += kc.valueUsage(entry.Value)
}

// merge applies the dirty entries of a child layer. Values are moved, not
// copied; the child must drop its map afterwards.
func (kc *keyedCache[V]) merge(child map[util.Hash]*CacheEntry[V]) {
	for key, childEntry := range child {
		// Ignore non-dirty entries (optimization).
		if !childEntry.Dirty {
			continue
		}
		entry, ok := kc.entries[key]
		if !ok {
			// The parent has no entry while the child has a modified one.
			// Move it up, unless it is fresh and absent.
			if childEntry.Fresh && kc.isAbsent(childEntry.Value) {
				continue
			}
			kc.insert(&key, &CacheEntry[V]{
				Value: childEntry.Value,
				Dirty: true,
				Fresh: childEntry.Fresh,
			})
			continue
		}
		if childEntry.Fresh && !kc.isAbsent(entry.Value) {
			panic(fmt.Sprintf("FRESH flag misapplied to cache entry for %s %s", kc.name, key.String()))
		}
		if entry.Fresh && kc.isAbsent(childEntry.Value) {
			// The grandparent does not have an entry, and the child is
			// modified and being pruned. This means we can just delete
			// it from the parent.
			kc.remove(&key)
			continue
		}
		kc.cachedUsage -= kc.valueUsage(entry.Value)
		entry.Value = childEntry.Value
		entry.Dirty = true
		kc.cachedUsage += kc.valueUsage(entry.Value)
	}
}

// take hands the whole map to the caller and leaves the namespace empty.
func (kc *keyedCache[V]) take() map[util.Hash]*CacheEntry[V] {
	entries := kc.entries
	kc.clear()
	return entries
}

func (kc *keyedCache[V]) clear() {
	kc.entries = make(map[util.Hash]*CacheEntry[V])
	kc.cachedUsage = 0
}

func (kc *keyedCache[V]) count() int {
	return len(kc.entries)
}

func (kc *keyedCache[V]) dynamicMemoryUsage() int64 {
	return int64(len(kc.entries))*entryMemUsage + kc.cachedUsage
}
