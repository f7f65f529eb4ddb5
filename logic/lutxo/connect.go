package lutxo

import (
	"github.com/pkg/errors"

	"github.com/copernet/chainstate/errcode"
	"github.com/copernet/chainstate/log"
	"github.com/copernet/chainstate/model/coins"
	"github.com/copernet/chainstate/model/shielded"
	"github.com/copernet/chainstate/model/utxo"
	"github.com/copernet/chainstate/util"
)

// TxEffects is what one already validated transaction does to the chain
// state.
type TxEffects struct {
	Txid       util.Hash
	Version    int32
	CoinBase   bool
	Spends     []utxo.OutPoint
	Outputs    []coins.TxOut
	Nullifiers [shielded.PoolCount][]util.Hash
}

// BlockEffects lists the transaction effects of a block in block order.
// Trees holds each pool's commitment tree after the block; nil leaves the
// pool's best anchor unchanged.
type BlockEffects struct {
	Hash     util.Hash
	PrevHash util.Hash
	Height   int32
	Txs      []TxEffects
	Trees    [shielded.PoolCount]shielded.Tree
}

// ConnectBlock applies block to view and returns the data needed to
// disconnect it again. On error view is left partially updated and should be
// discarded.
func ConnectBlock(view *utxo.CoinsViewCache, block *BlockEffects) (*BlockUndo, error) {
	best := view.GetBestBlock()
	if best != block.PrevHash {
		return nil, errors.Errorf("block %s does not extend best block %s", block.Hash, best)
	}

	undo := NewBlockUndo(len(block.Txs))
	for _, pool := range shielded.Pools {
		undo.PrevAnchors[pool] = view.GetBestAnchor(pool)
	}

	for i := range block.Txs {
		txUndo, err := connectTx(view, &block.Txs[i], block.Height)
		if err != nil {
			return nil, err
		}
		undo.Txs = append(undo.Txs, txUndo)
	}

	for _, pool := range shielded.Pools {
		tree := block.Trees[pool]
		if tree == nil {
			continue
		}
		if tree.Pool() != pool {
			return nil, errors.Errorf("block %s carries a %s tree for the %s pool", block.Hash, tree.Pool(), pool)
		}
		view.PushAnchor(tree)
	}
	view.SetBestBlock(block.Hash)

	log.Print("lutxo", "debug", "connected block %s at height %d with %d transactions",
		block.Hash, block.Height, len(block.Txs))
	return undo, nil
}

func connectTx(view *utxo.CoinsViewCache, tx *TxEffects, height int32) (TxUndo, error) {
	txUndo := TxUndo{Prevouts: make([]TxInUndo, 0, len(tx.Spends))}
	if !tx.CoinBase {
		for _, prevout := range tx.Spends {
			modifier := view.ModifyCoins(&prevout.Hash)
			record := modifier.Coins()
			index := int(prevout.Index)
			if !record.IsAvailable(index) {
				modifier.Release()
				return TxUndo{}, errcode.Newf(errcode.ErrorMissingInputs,
					"tx %s spends %s:%d", tx.Txid, prevout.Hash, prevout.Index)
			}
			in := TxInUndo{Out: record.Outputs[index]}
			record.Spend(index)
			if record.IsPruned() {
				in.HasMetadata = true
				in.CoinBase = record.CoinBase
				in.Height = record.Height
				in.Version = record.Version
			}
			modifier.Release()
			txUndo.Prevouts = append(txUndo.Prevouts, in)
		}
	}

	for _, pool := range shielded.Pools {
		for i := range tx.Nullifiers[pool] {
			nf := &tx.Nullifiers[pool][i]
			if view.GetNullifier(nf, pool) {
				return TxUndo{}, errcode.Newf(errcode.ErrorNullifierAlreadySpent,
					"tx %s reveals %s nullifier %s", tx.Txid, pool, nf)
			}
		}
	}
	SetNullifiers(view, tx, true)

	if len(tx.Outputs) > 0 {
		if view.HaveCoins(&tx.Txid) {
			return TxUndo{}, errcode.Newf(errcode.ErrorOverwriteUnspentCoins, "tx %s", tx.Txid)
		}
		outputs := make([]coins.TxOut, len(tx.Outputs))
		copy(outputs, tx.Outputs)
		var modifier *utxo.CoinsModifier
		if tx.CoinBase || view.HaveCoinsInCache(&tx.Txid) {
			// a coinbase may repeat the txid of a fully spent earlier one
			modifier = view.ModifyCoins(&tx.Txid)
		} else {
			modifier = view.ModifyNewCoins(&tx.Txid)
		}
		*modifier.Coins() = *coins.NewCoins(tx.Version, height, tx.CoinBase, outputs)
		modifier.Release()
	}
	return txUndo, nil
}

// SetNullifiers marks every nullifier revealed by tx as spent or unspent in
// its pool.
func SetNullifiers(view *utxo.CoinsViewCache, tx *TxEffects, spent bool) {
	for _, pool := range shielded.Pools {
		for i := range tx.Nullifiers[pool] {
			view.SetNullifier(&tx.Nullifiers[pool][i], pool, spent)
		}
	}
}

// DisconnectBlock reverts block on view using the undo data produced when it
// was connected. Inconsistencies that can be repaired are logged; undo data
// that does not fit the block is reported as errcode.ErrorBadUndoData.
func DisconnectBlock(view *utxo.CoinsViewCache, block *BlockEffects, undo *BlockUndo) error {
	best := view.GetBestBlock()
	if best != block.Hash {
		return errcode.Newf(errcode.ErrorBadUndoData, "block %s is not the best block %s", block.Hash, best)
	}
	if len(undo.Txs) != len(block.Txs) {
		return errcode.Newf(errcode.ErrorBadUndoData, "block %s has %d transactions but %d undo records",
			block.Hash, len(block.Txs), len(undo.Txs))
	}

	clean := true
	for i := len(block.Txs) - 1; i >= 0; i-- {
		txClean, err := disconnectTx(view, &block.Txs[i], &undo.Txs[i], block.Height)
		if err != nil {
			return err
		}
		clean = clean && txClean
	}

	for _, pool := range shielded.Pools {
		view.PopAnchor(undo.PrevAnchors[pool], pool)
	}
	view.SetBestBlock(block.PrevHash)

	if !clean {
		log.Print("lutxo", "warn", "disconnected block %s but the coins were inconsistent with it", block.Hash)
	}
	return nil
}

func disconnectTx(view *utxo.CoinsViewCache, tx *TxEffects, txUndo *TxUndo, height int32) (bool, error) {
	clean := true

	if len(tx.Outputs) > 0 {
		modifier := view.ModifyCoins(&tx.Txid)
		record := modifier.Coins()
		expected := coins.NewCoins(tx.Version, height, tx.CoinBase, append([]coins.TxOut(nil), tx.Outputs...))
		// outputs spent later in the chain are already gone
		if record.IsPruned() || record.Version != expected.Version || record.Height != expected.Height ||
			record.CoinBase != expected.CoinBase || len(record.Outputs) > len(expected.Outputs) {
			clean = false
		} else {
			for j := range record.Outputs {
				if !record.Outputs[j].IsNull() && !record.Outputs[j].IsEqual(&expected.Outputs[j]) {
					clean = false
					break
				}
			}
		}
		record.Clear()
		modifier.Release()
	}

	SetNullifiers(view, tx, false)

	if tx.CoinBase {
		return clean, nil
	}
	if len(txUndo.Prevouts) != len(tx.Spends) {
		return false, errcode.Newf(errcode.ErrorBadUndoData, "tx %s has %d inputs but %d undo records",
			tx.Txid, len(tx.Spends), len(txUndo.Prevouts))
	}
	for j := len(tx.Spends) - 1; j >= 0; j-- {
		prevout := &tx.Spends[j]
		in := &txUndo.Prevouts[j]
		inClean, err := restoreOutput(view, prevout, in)
		if err != nil {
			return false, err
		}
		clean = clean && inClean
	}
	return clean, nil
}

func restoreOutput(view *utxo.CoinsViewCache, prevout *utxo.OutPoint, in *TxInUndo) (bool, error) {
	clean := true
	modifier := view.ModifyCoins(&prevout.Hash)
	defer modifier.Release()

	record := modifier.Coins()
	if in.HasMetadata {
		if !record.IsPruned() {
			clean = false
		}
		record.Clear()
		record.CoinBase = in.CoinBase
		record.Height = in.Height
		record.Version = in.Version
	} else if record.IsPruned() {
		return false, errcode.Newf(errcode.ErrorBadUndoData,
			"undo data adds an output to missing transaction %s", prevout.Hash)
	}

	index := int(prevout.Index)
	if record.IsAvailable(index) {
		clean = false
	}
	for len(record.Outputs) <= index {
		var spent coins.TxOut
		spent.SetNull()
		record.Outputs = append(record.Outputs, spent)
	}
	record.Outputs[index] = in.Out
	return clean, nil
}
