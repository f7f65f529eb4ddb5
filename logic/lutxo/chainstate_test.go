package lutxo

import (
	"errors"
	"os"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copernet/chainstate/conf"
	"github.com/copernet/chainstate/errcode"
	"github.com/copernet/chainstate/model/shielded"
	"github.com/copernet/chainstate/model/utxo"
)

func testConfig(watermarkMB int) *conf.Configuration {
	cfg := conf.InitConfig([]string{})
	cfg.Chainstate.FlushWatermarkMB = watermarkMB
	return cfg
}

func TestTrialConnectRollsBack(t *testing.T) {
	f := newFixture(t)
	cs := NewChainState(testConfig(300), f.base)

	block := f.block(t)
	block.Txs[2].Spends = append(block.Txs[2].Spends, utxo.OutPoint{Hash: f.rng.RandHash()})
	_, err := cs.ConnectTip(block)
	assert.True(t, errcode.IsErrorCode(err, errcode.ErrorMissingInputs), "%v", err)

	// Nothing of the failed block reached the tip.
	assert.Equal(t, f.genesis, cs.BestBlock())
	require.NoError(t, cs.TrialConnect(func(view *utxo.CoinsViewCache) error {
		assert.True(t, view.HaveCoins(&f.funding[0]))
		assert.False(t, view.HaveCoins(&block.Txs[1].Txid))
		assert.False(t, view.GetNullifier(&block.Txs[1].Nullifiers[shielded.Sprout][0], shielded.Sprout))
		assert.Equal(t, shielded.EmptyRoot(shielded.Sapling), view.GetBestAnchor(shielded.Sapling))
		return nil
	}))

	sentinel := errors.New("stop")
	err = cs.TrialConnect(func(view *utxo.CoinsViewCache) error {
		view.SetBestBlock(f.rng.RandHash())
		return sentinel
	})
	assert.Equal(t, sentinel, err)
	assert.Equal(t, f.genesis, cs.BestBlock())
}

func TestChainStateFlushPolicy(t *testing.T) {
	f := newFixture(t)
	cs := NewChainState(testConfig(300), f.base)

	block := f.block(t)
	undo, err := cs.ConnectTip(block)
	require.NoError(t, err)
	assert.Equal(t, block.Hash, cs.BestBlock())
	assert.NotZero(t, cs.CacheUsage())

	// Far below the watermark: the base still has the old state.
	require.NoError(t, cs.FlushStateToDisk(FlushIfNeeded))
	assert.Equal(t, f.genesis, f.base.GetBestBlock())

	require.NoError(t, cs.FlushStateToDisk(FlushAlways))
	assert.Equal(t, block.Hash, f.base.GetBestBlock())
	assert.Zero(t, cs.CacheUsage())

	// With a zero watermark every connect reaches the base.
	cs = NewChainState(testConfig(0), f.base)
	require.NoError(t, cs.DisconnectTip(block, undo))
	assert.Equal(t, f.genesis, f.base.GetBestBlock())
	assert.True(t, f.base.HaveCoins(&f.funding[0]))
	assert.Equal(t, shielded.EmptyRoot(shielded.Sapling), f.base.GetBestAnchor(shielded.Sapling))
}

func TestChainStateFlushFailure(t *testing.T) {
	f := newFixture(t)
	ctrl := gomock.NewController(t)
	base := utxo.NewMockCoinsView(ctrl)
	cs := NewChainState(testConfig(300), base)

	require.NoError(t, cs.TrialConnect(func(view *utxo.CoinsViewCache) error {
		view.SetBestBlock(f.rng.RandHash())
		return nil
	}))

	base.EXPECT().BatchWrite(gomock.Any()).Return(errcode.New(errcode.ErrorFailedToWriteToCoinDatabase))
	err := cs.FlushStateToDisk(FlushAlways)
	assert.True(t, errcode.IsErrorCode(err, errcode.SystemErrorWhileFlushing), "%v", err)
}

func TestOpenChainState(t *testing.T) {
	cfg := testConfig(300)
	path, err := conf.SetUnitTestDataDir(cfg)
	require.NoError(t, err)
	defer os.RemoveAll(path)

	f := newFixture(t)
	cs, err := OpenChainState(cfg)
	require.NoError(t, err)
	assert.Zero(t, cs.BestBlock())

	genesis := &BlockEffects{
		Hash: f.rng.RandHash(),
		Txs: []TxEffects{{
			Txid:     f.rng.RandHash(),
			Version:  1,
			CoinBase: true,
			Outputs:  randomOutputs(f.rng, 2),
		}},
	}
	genesis.Trees[shielded.Sprout] = f.tree(t, shielded.Sprout, 2)
	_, err = cs.ConnectTip(genesis)
	require.NoError(t, err)
	require.NoError(t, cs.Close())

	cs, err = OpenChainState(cfg)
	require.NoError(t, err)
	defer cs.Close()
	assert.Equal(t, genesis.Hash, cs.BestBlock())
	require.NoError(t, cs.TrialConnect(func(view *utxo.CoinsViewCache) error {
		assert.True(t, view.HaveCoins(&genesis.Txs[0].Txid))
		root := genesis.Trees[shielded.Sprout].Root()
		assert.Equal(t, root, view.GetBestAnchor(shielded.Sprout))
		tree, ok := view.GetAnchorAt(&root, shielded.Sprout)
		require.True(t, ok)
		assert.Equal(t, uint64(2), tree.Size())
		return nil
	}))
}

func TestFlushModeString(t *testing.T) {
	assert.Equal(t, "if-needed", FlushIfNeeded.String())
	assert.Equal(t, "always", FlushAlways.String())
	assert.Equal(t, "unknown", FlushMode(7).String())
}
