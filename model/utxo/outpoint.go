package utxo

import (
	"fmt"

	"github.com/copernet/chainstate/model/coins"
	"github.com/copernet/chainstate/util"
)

// OutPoint names one output of a transaction.
type OutPoint struct {
	Hash  util.Hash
	Index uint32
}

func (out *OutPoint) String() string {
	return fmt.Sprintf("%s:%d", out.Hash.String(), out.Index)
}

// GetOutputFor returns the unspent output prevout refers to. The output
// belongs to the cache and must not be modified. It panics when the output
// is not available.
func (coinsViewCache *CoinsViewCache) GetOutputFor(prevout *OutPoint) *coins.TxOut {
	record := coinsViewCache.AccessCoins(&prevout.Hash)
	index := int(prevout.Index)
	if !record.IsAvailable(index) {
		panic("output " + prevout.String() + " is not available")
	}
	return &record.Outputs[index]
}

// GetValueIn sums the values of the outputs spends refers to. Every output
// must be available.
func (coinsViewCache *CoinsViewCache) GetValueIn(spends []OutPoint) int64 {
	var total int64
	for i := range spends {
		total += coinsViewCache.GetOutputFor(&spends[i]).Value
	}
	return total
}
