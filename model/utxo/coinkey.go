package utxo

import (
	"github.com/copernet/chainstate/model/shielded"
	"github.com/copernet/chainstate/persist/db"
	"github.com/copernet/chainstate/util"
)

var (
	anchorPrefix = [shielded.PoolCount]byte{
		shielded.Sprout:  db.DbSproutAnchor,
		shielded.Sapling: db.DbSaplingAnchor,
	}
	bestAnchorKey = [shielded.PoolCount]byte{
		shielded.Sprout:  db.DbBestSproutAnchor,
		shielded.Sapling: db.DbBestSaplingAnchor,
	}
	nullifierPrefix = [shielded.PoolCount]byte{
		shielded.Sprout:  db.DbSproutNullifier,
		shielded.Sapling: db.DbSaplingNullifier,
	}
)

func prefixedKey(prefix byte, hash *util.Hash) []byte {
	key := make([]byte, 1+util.Hash256Size)
	key[0] = prefix
	copy(key[1:], hash[:])
	return key
}

// CoinKey is the database key of a transaction's coins: 'c' followed by the
// raw txid.
func CoinKey(txid *util.Hash) []byte {
	return prefixedKey(db.DbCoins, txid)
}

func AnchorKey(root *util.Hash, pool shielded.Pool) []byte {
	return prefixedKey(anchorPrefix[pool], root)
}

func BestAnchorKey(pool shielded.Pool) []byte {
	return []byte{bestAnchorKey[pool]}
}

func NullifierKey(nf *util.Hash, pool shielded.Pool) []byte {
	return prefixedKey(nullifierPrefix[pool], nf)
}

// TxidFromCoinKey extracts the txid from a key built by CoinKey.
func TxidFromCoinKey(key []byte) (util.Hash, bool) {
	var txid util.Hash
	if len(key) != 1+util.Hash256Size || key[0] != db.DbCoins {
		return txid, false
	}
	copy(txid[:], key[1:])
	return txid, true
}
