package utxo

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/copernet/chainstate/model/coins"
	"github.com/copernet/chainstate/util"
)

// CoinsStats summarizes a stored coin set. HashSerialized commits to the
// best block and every record in txid order, so two stores holding the same
// set report the same digest.
type CoinsStats struct {
	BestBlock          util.Hash
	Transactions       uint64
	TransactionOutputs uint64
	SerializedSize     uint64
	TotalAmount        int64
	HashSerialized     util.Hash
}

func (stats *CoinsStats) String() string {
	return fmt.Sprintf("bestblock:%s transactions:%d txouts:%d bytes:%d amount:%d hash:%s",
		stats.BestBlock.String(), stats.Transactions, stats.TransactionOutputs,
		stats.SerializedSize, stats.TotalAmount, stats.HashSerialized.String())
}

type statsBuilder struct {
	stats  CoinsStats
	hasher hash.Hash
}

func newStatsBuilder(bestBlock util.Hash) *statsBuilder {
	builder := &statsBuilder{hasher: sha256.New()}
	builder.stats.BestBlock = bestBlock
	builder.hasher.Write(bestBlock[:])
	return builder
}

func (builder *statsBuilder) add(txid *util.Hash, c *coins.Coins, serialized []byte) {
	if c.IsPruned() {
		return
	}
	builder.hasher.Write(txid[:])
	builder.hasher.Write(serialized)
	builder.stats.Transactions++
	builder.stats.TransactionOutputs += uint64(c.UnspentCount())
	builder.stats.SerializedSize += uint64(util.Hash256Size + len(serialized))
	builder.stats.TotalAmount += c.Value()
}

func (builder *statsBuilder) finish() *CoinsStats {
	first := builder.hasher.Sum(nil)
	builder.stats.HashSerialized = util.Hash(sha256.Sum256(first))
	return &builder.stats
}
