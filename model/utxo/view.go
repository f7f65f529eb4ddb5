package utxo

import (
	"github.com/copernet/chainstate/model/coins"
	"github.com/copernet/chainstate/model/shielded"
	"github.com/copernet/chainstate/util"
)

//go:generate mockgen -source=view.go -destination=mock_coinsview.go -package=utxo

// CoinsView is a readable chain state that accepts batched writes. It is
// implemented by CoinsDB, MemCoinsView and CoinsViewCache, so caches can be
// stacked on top of each other to any depth.
type CoinsView interface {
	// GetCoins returns a copy of the record for txid. The record may be
	// pruned, which callers must treat as absent.
	GetCoins(txid *util.Hash) (*coins.Coins, bool)
	HaveCoins(txid *util.Hash) bool
	GetBestBlock() util.Hash
	GetBestAnchor(pool shielded.Pool) util.Hash
	// GetAnchorAt returns a snapshot owned by the caller. The empty root of
	// the pool always resolves.
	GetAnchorAt(root *util.Hash, pool shielded.Pool) (shielded.Tree, bool)
	GetNullifier(nf *util.Hash, pool shielded.Pool) bool
	// BatchWrite applies the dirty entries of batch atomically. Ownership of
	// the values in batch passes to the receiver.
	BatchWrite(batch *CacheBatch) error
}
