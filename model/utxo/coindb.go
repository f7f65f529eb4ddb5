package utxo

import (
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"

	"github.com/copernet/chainstate/errcode"
	"github.com/copernet/chainstate/log"
	"github.com/copernet/chainstate/model/coins"
	"github.com/copernet/chainstate/model/shielded"
	"github.com/copernet/chainstate/persist/db"
	"github.com/copernet/chainstate/util"
)

var nullifierEntered = []byte{0x01}

type anchorCacheKey struct {
	pool shielded.Pool
	root util.Hash
}

// CoinsDB is the CoinsView stored in leveldb, the bottom of every cache
// stack. Decoded commitment trees are kept in a small LRU.
type CoinsDB struct {
	dbw         *db.DBWrapper
	anchorCache *lru.Cache
}

func NewCoinsDB(do *db.DBOption, anchorCacheSize int) (*CoinsDB, error) {
	if do == nil {
		return nil, errors.New("NewCoinsDB: nil DBOption")
	}
	dbw, err := db.NewDBWrapper(do)
	if err != nil {
		log.Error("open coin database %s failed: %v", do.FilePath, err)
		return nil, errors.Wrap(errcode.New(errcode.ErrorOpenDatabase), err.Error())
	}
	if anchorCacheSize <= 0 {
		anchorCacheSize = 1
	}
	cache, err := lru.New(anchorCacheSize)
	if err != nil {
		dbw.Close()
		return nil, err
	}
	log.Print("coindb", "info", "opened coin database %s", dbw.Name())
	return &CoinsDB{
		dbw:         dbw,
		anchorCache: cache,
	}, nil
}

func (coinsDB *CoinsDB) GetDBW() *db.DBWrapper {
	return coinsDB.dbw
}

// read returns nil for a missing key. Any other failure leaves the chain
// state unreadable and is fatal.
func (coinsDB *CoinsDB) read(key []byte) []byte {
	value, err := coinsDB.dbw.Read(key)
	if err != nil {
		if db.IsNotFound(err) {
			return nil
		}
		log.Emergency("coin database read %x failed: %v", key, err)
		panic("coin database read failed: " + err.Error())
	}
	return value
}

func (coinsDB *CoinsDB) GetCoins(txid *util.Hash) (*coins.Coins, bool) {
	value := coinsDB.read(CoinKey(txid))
	if value == nil {
		return nil, false
	}
	c, err := coins.FromBytes(value)
	if err != nil {
		log.Emergency("decode coins %s: %v", txid.String(), err)
		panic(errcode.Newf(errcode.ErrorDecodeCoins, "txid %s: %v", txid.String(), err))
	}
	return c, true
}

func (coinsDB *CoinsDB) HaveCoins(txid *util.Hash) bool {
	return coinsDB.dbw.Exists(CoinKey(txid))
}

func (coinsDB *CoinsDB) GetBestBlock() util.Hash {
	var hashBestChain util.Hash
	value := coinsDB.read([]byte{db.DbBestBlock})
	if value == nil {
		return hashBestChain
	}
	if err := hashBestChain.SetBytes(value); err != nil {
		log.Emergency("decode best block: %v", err)
		panic(errcode.Newf(errcode.ErrorDatabaseCorrupted, "best block: %v", err))
	}
	return hashBestChain
}

func (coinsDB *CoinsDB) GetBestAnchor(pool shielded.Pool) util.Hash {
	value := coinsDB.read(BestAnchorKey(pool))
	if value == nil {
		return shielded.EmptyRoot(pool)
	}
	var root util.Hash
	if err := root.SetBytes(value); err != nil {
		log.Emergency("decode best %s anchor: %v", pool.String(), err)
		panic(errcode.Newf(errcode.ErrorDatabaseCorrupted, "best %s anchor: %v", pool.String(), err))
	}
	return root
}

func (coinsDB *CoinsDB) GetAnchorAt(root *util.Hash, pool shielded.Pool) (shielded.Tree, bool) {
	if shielded.IsEmptyRoot(root, pool) {
		return shielded.NewEmptyTree(pool), true
	}
	key := anchorCacheKey{pool: pool, root: *root}
	if cached, ok := coinsDB.anchorCache.Get(key); ok {
		return cached.(shielded.Tree).Clone(), true
	}
	value := coinsDB.read(AnchorKey(root, pool))
	if value == nil {
		return nil, false
	}
	tree, err := shielded.TreeFromBytes(pool, value)
	if err != nil {
		log.Emergency("decode %s anchor %s: %v", pool.String(), root.String(), err)
		panic(errcode.Newf(errcode.ErrorDecodeAnchor, "%s anchor %s: %v", pool.String(), root.String(), err))
	}
	coinsDB.anchorCache.Add(key, tree)
	return tree.Clone(), true
}

func (coinsDB *CoinsDB) GetNullifier(nf *util.Hash, pool shielded.Pool) bool {
	return coinsDB.dbw.Exists(NullifierKey(nf, pool))
}

func sortedKeys[V any](entries map[util.Hash]*CacheEntry[V]) []util.Hash {
	keys := maps.Keys(entries)
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Cmp(&keys[j]) < 0
	})
	return keys
}

// BatchWrite writes all dirty entries of batch in one leveldb batch.
func (coinsDB *CoinsDB) BatchWrite(batch *CacheBatch) error {
	bw := db.NewBatchWrapper(coinsDB.dbw)
	count := 0
	changed := 0
	for _, txid := range sortedKeys(batch.Coins) {
		entry := batch.Coins[txid]
		if entry.Dirty {
			if entry.Value.IsPruned() {
				bw.Erase(CoinKey(&txid))
			} else {
				bw.Write(CoinKey(&txid), entry.Value.Bytes())
			}
			changed++
		}
		count++
	}
	for _, pool := range shielded.Pools {
		anchors := batch.Anchors[pool]
		for _, root := range sortedKeys(anchors) {
			entry := anchors[root]
			// The empty root resolves without storage.
			if !entry.Dirty || shielded.IsEmptyRoot(&root, pool) {
				continue
			}
			if entry.Value == nil {
				bw.Erase(AnchorKey(&root, pool))
			} else {
				bw.Write(AnchorKey(&root, pool), shielded.TreeBytes(entry.Value))
			}
		}
		nullifiers := batch.Nullifiers[pool]
		for _, nf := range sortedKeys(nullifiers) {
			entry := nullifiers[nf]
			if !entry.Dirty {
				continue
			}
			if entry.Value {
				bw.Write(NullifierKey(&nf, pool), nullifierEntered)
			} else {
				bw.Erase(NullifierKey(&nf, pool))
			}
		}
		if !batch.BestAnchors[pool].IsNull() {
			bw.Write(BestAnchorKey(pool), batch.BestAnchors[pool][:])
		}
	}
	if !batch.BestBlock.IsNull() {
		bw.Write([]byte{db.DbBestBlock}, batch.BestBlock[:])
	}

	if err := coinsDB.dbw.WriteBatch(bw, false); err != nil {
		log.Error("write coin database batch of %d bytes failed: %v", bw.SizeEstimate(), err)
		return errcode.Newf(errcode.ErrorFailedToWriteToCoinDatabase, "%v", err)
	}
	coinsDB.anchorCache.Purge()
	log.Print("coindb", "debug", "Committed %d changed coin entries (out of %d) to coin database", changed, count)
	return nil
}

// ForEachCoins calls fn for every stored record in txid order until fn
// returns false.
func (coinsDB *CoinsDB) ForEachCoins(fn func(txid *util.Hash, c *coins.Coins) bool) error {
	iter := coinsDB.dbw.PrefixIterator([]byte{db.DbCoins})
	defer iter.Close()
	for iter.SeekToFirst(); iter.Valid(); iter.Next() {
		txid, ok := TxidFromCoinKey(iter.GetKey())
		if !ok {
			continue
		}
		c, err := coins.FromBytes(iter.GetVal())
		if err != nil {
			return errcode.Newf(errcode.ErrorDecodeCoins, "txid %s: %v", txid.String(), err)
		}
		if !fn(&txid, c) {
			break
		}
	}
	return iter.Error()
}

func (coinsDB *CoinsDB) GetStats() (*CoinsStats, error) {
	builder := newStatsBuilder(coinsDB.GetBestBlock())
	err := coinsDB.ForEachCoins(func(txid *util.Hash, c *coins.Coins) bool {
		builder.add(txid, c, c.Bytes())
		return true
	})
	if err != nil {
		return nil, err
	}
	return builder.finish(), nil
}

// EstimateSize returns the approximate on-disk size of the coin records.
func (coinsDB *CoinsDB) EstimateSize() uint64 {
	return coinsDB.dbw.EstimateSize([]byte{db.DbCoins}, []byte{db.DbCoins + 1})
}

func (coinsDB *CoinsDB) Close() error {
	coinsDB.anchorCache.Purge()
	return coinsDB.dbw.Close()
}
