package lutxo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/copernet/chainstate/log"
	"github.com/copernet/chainstate/model/coins"
	"github.com/copernet/chainstate/model/shielded"
	"github.com/copernet/chainstate/util"
)

const (
	// MaxInputsPerTx bounds the undo records decoded for one transaction.
	MaxInputsPerTx = 1 << 16
	// MaxTxsPerBlock bounds the transaction undo records decoded for one block.
	MaxTxsPerBlock = 1 << 20
)

// TxInUndo is the undo information for one spent output. When the spend
// pruned the record, HasMetadata is set and the record's version, height and
// coinbase flag are kept so disconnecting can rebuild it.
type TxInUndo struct {
	Out         coins.TxOut
	HasMetadata bool
	CoinBase    bool
	Height      int32
	Version     int32
}

// Serialize writes the input undo as
//
//	varlen code, 0 without metadata, else (height+1)<<1 | coinbase
//	varlen version, only with metadata
//	int64 value, varbytes script
func (u *TxInUndo) Serialize(w io.Writer) error {
	var code uint64
	if u.HasMetadata {
		code = (uint64(uint32(u.Height))+1)<<1 | boolBit(u.CoinBase)
	}
	if err := util.WriteVarLenInt(w, code); err != nil {
		return err
	}
	if u.HasMetadata {
		if err := util.WriteVarLenInt(w, uint64(uint32(u.Version))); err != nil {
			return err
		}
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(u.Out.Value))
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	return util.WriteVarBytes(w, u.Out.Script)
}

func (u *TxInUndo) Unserialize(r io.Reader) error {
	code, err := util.ReadVarLenInt(r)
	if err != nil {
		return err
	}
	*u = TxInUndo{}
	if code > 0 {
		u.HasMetadata = true
		u.CoinBase = code&1 == 1
		u.Height = int32(uint32((code >> 1) - 1))
		version, err := util.ReadVarLenInt(r)
		if err != nil {
			return err
		}
		u.Version = int32(uint32(version))
	}
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	u.Out.Value = int64(binary.LittleEndian.Uint64(buf[:]))
	u.Out.Script, err = util.ReadVarBytes(r, coins.MaxScriptSize, "undo script")
	return err
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// TxUndo holds the spent outputs of one transaction, in input order.
type TxUndo struct {
	Prevouts []TxInUndo
}

func (tu *TxUndo) Serialize(w io.Writer) error {
	if err := util.WriteVarInt(w, uint64(len(tu.Prevouts))); err != nil {
		log.Error("TxUndo Serialize: serialize error: %v", err)
		return err
	}
	for i := range tu.Prevouts {
		if err := tu.Prevouts[i].Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (tu *TxUndo) Unserialize(r io.Reader) error {
	count, err := util.ReadVarInt(r)
	if err != nil {
		log.Error("TxUndo Unserialize: the read count is: %d, error: %v", count, err)
		return err
	}
	if count > MaxInputsPerTx {
		return fmt.Errorf("too many input undo records: %d", count)
	}
	prevouts := make([]TxInUndo, count)
	for i := range prevouts {
		if err := prevouts[i].Unserialize(r); err != nil {
			log.Error("TxUndo Unserialize: input %d: %v", i, err)
			return err
		}
	}
	tu.Prevouts = prevouts
	return nil
}

// BlockUndo is everything needed to disconnect a block: one TxUndo per
// transaction and the best anchors the block replaced.
type BlockUndo struct {
	Txs         []TxUndo
	PrevAnchors [shielded.PoolCount]util.Hash
}

func NewBlockUndo(count int) *BlockUndo {
	return &BlockUndo{Txs: make([]TxUndo, 0, count)}
}

func (bu *BlockUndo) Serialize(w io.Writer) error {
	if err := util.WriteVarLenInt(w, uint64(len(bu.Txs))); err != nil {
		log.Error("BlockUndo Serialize: serialize block undo failed:%v", err)
		return err
	}
	for i := range bu.Txs {
		if err := bu.Txs[i].Serialize(w); err != nil {
			return err
		}
	}
	for _, pool := range shielded.Pools {
		if _, err := bu.PrevAnchors[pool].Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func (bu *BlockUndo) Unserialize(r io.Reader) error {
	count, err := util.ReadVarLenInt(r)
	if err != nil {
		log.Error("BlockUndo Unserialize: read count failed:%v", err)
		return err
	}
	if count > MaxTxsPerBlock {
		return fmt.Errorf("too many transaction undo records: %d", count)
	}
	txs := make([]TxUndo, count)
	for i := range txs {
		if err := txs[i].Unserialize(r); err != nil {
			return err
		}
	}
	var anchors [shielded.PoolCount]util.Hash
	for _, pool := range shielded.Pools {
		if _, err := anchors[pool].Unserialize(r); err != nil {
			return err
		}
	}
	bu.Txs = txs
	bu.PrevAnchors = anchors
	return nil
}

func (bu *BlockUndo) SerializeSize() int {
	buf := bytes.NewBuffer(nil)
	if err := bu.Serialize(buf); err != nil {
		log.Error("BlockUndo SerializeSize: serialize block undo failed:%v", err)
		return 0
	}
	return buf.Len()
}
