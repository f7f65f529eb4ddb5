package lutxo

import (
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/copernet/chainstate/conf"
	"github.com/copernet/chainstate/log"
	"github.com/copernet/chainstate/model/utxo"
	"github.com/copernet/chainstate/persist/db"
	"github.com/copernet/chainstate/util"
)

type FlushMode int

const (
	// FlushIfNeeded writes the tip only when its memory usage is above the
	// configured watermark.
	FlushIfNeeded FlushMode = iota
	FlushAlways
)

func (mode FlushMode) String() string {
	switch mode {
	case FlushIfNeeded:
		return "if-needed"
	case FlushAlways:
		return "always"
	}
	return "unknown"
}

// ChainState owns a persistent CoinsView and the long-lived tip cache on
// top of it. All changes go through it so that only one driver touches the
// stack at a time.
type ChainState struct {
	mtx       sync.Mutex
	base      utxo.CoinsView
	tip       *utxo.CoinsViewCache
	watermark int64
}

func NewChainState(cfg *conf.Configuration, base utxo.CoinsView) *ChainState {
	return &ChainState{
		base:      base,
		tip:       utxo.NewCoinsViewCache(base),
		watermark: cfg.FlushWatermarkBytes(),
	}
}

// DBOption is the coin database configuration described by cfg.
func DBOption(cfg *conf.Configuration) *db.DBOption {
	return &db.DBOption{
		FilePath:       cfg.ChainstateDir(),
		CacheSize:      cfg.CacheSizeBytes(),
		Wipe:           cfg.Chainstate.Wipe,
		DontObfuscate:  cfg.Chainstate.DontObfuscate,
		ForceCompactdb: cfg.Chainstate.ForceCompact,
	}
}

// OpenChainState opens the coin database below cfg.DataDir and builds a
// chain state on it.
func OpenChainState(cfg *conf.Configuration) (*ChainState, error) {
	coinsDB, err := utxo.NewCoinsDB(DBOption(cfg), cfg.Chainstate.AnchorCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "open chain state")
	}
	cs := NewChainState(cfg, coinsDB)
	best := coinsDB.GetBestBlock()
	log.Print("lutxo", "info", "chain state opened at %s, best block %s", cfg.ChainstateDir(), best.String())
	return cs, nil
}

// TrialConnect runs fn against a fresh layer on top of the tip. The layer
// is merged into the tip when fn succeeds and thrown away otherwise.
func (cs *ChainState) TrialConnect(fn func(view *utxo.CoinsViewCache) error) error {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()

	view := utxo.NewCoinsViewCache(cs.tip)
	if err := fn(view); err != nil {
		view.Discard()
		log.Print("lutxo", "debug", "trial connect rolled back: %v", err)
		return err
	}
	return view.Flush()
}

// ConnectTip connects block on the tip and flushes to disk when needed.
func (cs *ChainState) ConnectTip(block *BlockEffects) (*BlockUndo, error) {
	var undo *BlockUndo
	err := cs.TrialConnect(func(view *utxo.CoinsViewCache) error {
		var err error
		undo, err = ConnectBlock(view, block)
		return err
	})
	if err != nil {
		return nil, err
	}
	return undo, cs.FlushStateToDisk(FlushIfNeeded)
}

// DisconnectTip reverts block, which must be the current best block.
func (cs *ChainState) DisconnectTip(block *BlockEffects, undo *BlockUndo) error {
	err := cs.TrialConnect(func(view *utxo.CoinsViewCache) error {
		return DisconnectBlock(view, block, undo)
	})
	if err != nil {
		return err
	}
	return cs.FlushStateToDisk(FlushIfNeeded)
}

func (cs *ChainState) FlushStateToDisk(mode FlushMode) error {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()
	return cs.flushLocked(mode)
}

func (cs *ChainState) flushLocked(mode FlushMode) error {
	usage := cs.tip.DynamicMemoryUsage()
	if mode == FlushIfNeeded && usage <= cs.watermark {
		return nil
	}
	entries := cs.tip.GetCacheSize()
	if err := cs.tip.Flush(); err != nil {
		log.Error("flush chain state (%s) failed: %v", mode, err)
		return err
	}
	log.Print("lutxo", "debug", "flushed chain state (%s): %d entries, %d bytes", mode, entries, usage)
	return nil
}

func (cs *ChainState) BestBlock() util.Hash {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()
	return cs.tip.GetBestBlock()
}

// CacheUsage is the memory held by the tip cache.
func (cs *ChainState) CacheUsage() int64 {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()
	return cs.tip.DynamicMemoryUsage()
}

// Close writes the tip to the base view and closes the base if it can be
// closed.
func (cs *ChainState) Close() error {
	cs.mtx.Lock()
	defer cs.mtx.Unlock()
	if err := cs.flushLocked(FlushAlways); err != nil {
		return err
	}
	if closer, ok := cs.base.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
