package coins

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unsafe"

	"github.com/copernet/chainstate/util"
)

const (
	// MaxScriptSize bounds a decoded output script.
	MaxScriptSize = 10000
	// MaxOutputs bounds the output count of a decoded record.
	MaxOutputs = 1 << 20
)

var (
	txOutSize = int64(unsafe.Sizeof(TxOut{}))
	coinsSize = int64(unsafe.Sizeof(Coins{}))
)

type TxOut struct {
	Value  int64
	Script []byte
	Spent  bool
}

func NewTxOut(value int64, script []byte) TxOut {
	return TxOut{Value: value, Script: script}
}

func (out *TxOut) IsNull() bool {
	return out.Spent
}

func (out *TxOut) SetNull() {
	out.Value = 0
	out.Script = nil
	out.Spent = true
}

func (out *TxOut) IsEqual(other *TxOut) bool {
	return out.Spent == other.Spent && out.Value == other.Value && bytes.Equal(out.Script, other.Script)
}

// Coins holds the outputs of one transaction together with the metadata
// needed to validate spends of them. An output is removed by marking it
// spent; a record with no unspent output is pruned and equivalent to no
// record at all.
type Coins struct {
	Version  int32
	CoinBase bool
	Height   int32
	Outputs  []TxOut
}

// Pruned is the shared empty record returned for unknown transactions. It
// must never be modified.
var Pruned = &Coins{}

func NewCoins(version int32, height int32, coinBase bool, outputs []TxOut) *Coins {
	c := &Coins{
		Version:  version,
		CoinBase: coinBase,
		Height:   height,
		Outputs:  outputs,
	}
	c.Cleanup()
	return c
}

func (c *Coins) IsCoinBase() bool {
	return c.CoinBase
}

// IsPruned reports whether every output is spent, including the case of no
// outputs at all.
func (c *Coins) IsPruned() bool {
	for i := range c.Outputs {
		if !c.Outputs[i].IsNull() {
			return false
		}
	}
	return true
}

// Cleanup drops trailing spent outputs.
func (c *Coins) Cleanup() {
	n := len(c.Outputs)
	for n > 0 && c.Outputs[n-1].IsNull() {
		n--
	}
	if n == 0 {
		c.Outputs = nil
		return
	}
	c.Outputs = c.Outputs[:n]
}

func (c *Coins) IsAvailable(pos int) bool {
	return pos >= 0 && pos < len(c.Outputs) && !c.Outputs[pos].IsNull()
}

// Spend marks output pos spent. It returns false when the output does not
// exist or is already spent.
func (c *Coins) Spend(pos int) bool {
	if !c.IsAvailable(pos) {
		return false
	}
	c.Outputs[pos].SetNull()
	c.Cleanup()
	return true
}

func (c *Coins) Clear() {
	c.Version = 0
	c.CoinBase = false
	c.Height = 0
	c.Outputs = nil
}

func (c *Coins) Clone() *Coins {
	n := &Coins{
		Version:  c.Version,
		CoinBase: c.CoinBase,
		Height:   c.Height,
	}
	if len(c.Outputs) > 0 {
		n.Outputs = make([]TxOut, len(c.Outputs))
		for i, out := range c.Outputs {
			n.Outputs[i] = out
			if out.Script != nil {
				n.Outputs[i].Script = append([]byte(nil), out.Script...)
			}
		}
	}
	return n
}

// IsEqual treats all pruned records as equal regardless of metadata.
func (c *Coins) IsEqual(other *Coins) bool {
	if c.IsPruned() && other.IsPruned() {
		return true
	}
	if c.Version != other.Version || c.CoinBase != other.CoinBase || c.Height != other.Height ||
		len(c.Outputs) != len(other.Outputs) {
		return false
	}
	for i := range c.Outputs {
		if !c.Outputs[i].IsEqual(&other.Outputs[i]) {
			return false
		}
	}
	return true
}

func (c *Coins) UnspentCount() int {
	n := 0
	for i := range c.Outputs {
		if !c.Outputs[i].IsNull() {
			n++
		}
	}
	return n
}

// Value sums the unspent outputs.
func (c *Coins) Value() int64 {
	var total int64
	for i := range c.Outputs {
		if !c.Outputs[i].IsNull() {
			total += c.Outputs[i].Value
		}
	}
	return total
}

// DynamicMemoryUsage estimates the heap held by the record, excluding the
// struct itself.
func (c *Coins) DynamicMemoryUsage() int64 {
	usage := int64(cap(c.Outputs)) * txOutSize
	for i := range c.Outputs {
		usage += int64(cap(c.Outputs[i].Script))
	}
	return usage
}

// MemoryUsage includes the struct.
func (c *Coins) MemoryUsage() int64 {
	return coinsSize + c.DynamicMemoryUsage()
}

func (c *Coins) String() string {
	return fmt.Sprintf("version:%d height:%d coinbase:%v outputs:%d unspent:%d",
		c.Version, c.Height, c.CoinBase, len(c.Outputs), c.UnspentCount())
}

// Serialize writes the record as
//
//	varlen version
//	varlen height<<1 | coinbase
//	varbytes unspent bitmap, one bit per output
//	for every unspent output: int64 value, varbytes script
func (c *Coins) Serialize(w io.Writer) error {
	if err := util.WriteVarLenInt(w, uint64(uint32(c.Version))); err != nil {
		return err
	}
	code := uint64(uint32(c.Height)) << 1
	if c.CoinBase {
		code |= 1
	}
	if err := util.WriteVarLenInt(w, code); err != nil {
		return err
	}

	// trailing spent outputs are not encoded
	n := len(c.Outputs)
	for n > 0 && c.Outputs[n-1].IsNull() {
		n--
	}
	if err := util.WriteVarInt(w, uint64(n)); err != nil {
		return err
	}
	mask := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if !c.Outputs[i].IsNull() {
			mask[i/8] |= 1 << uint(i%8)
		}
	}
	if _, err := w.Write(mask); err != nil {
		return err
	}

	var buf [8]byte
	for i := 0; i < n; i++ {
		out := &c.Outputs[i]
		if out.IsNull() {
			continue
		}
		binary.LittleEndian.PutUint64(buf[:], uint64(out.Value))
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
		if err := util.WriteVarBytes(w, out.Script); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coins) Unserialize(r io.Reader) error {
	version, err := util.ReadVarLenInt(r)
	if err != nil {
		return err
	}
	code, err := util.ReadVarLenInt(r)
	if err != nil {
		return err
	}
	n, err := util.ReadVarInt(r)
	if err != nil {
		return err
	}
	if n > MaxOutputs {
		return fmt.Errorf("coins output count %d exceeds %d", n, MaxOutputs)
	}
	mask := make([]byte, (n+7)/8)
	if _, err := io.ReadFull(r, mask); err != nil {
		return err
	}

	outputs := make([]TxOut, n)
	var buf [8]byte
	for i := range outputs {
		if mask[i/8]&(1<<uint(i%8)) == 0 {
			outputs[i].SetNull()
			continue
		}
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return err
		}
		outputs[i].Value = int64(binary.LittleEndian.Uint64(buf[:]))
		if outputs[i].Script, err = util.ReadVarBytes(r, MaxScriptSize, "script"); err != nil {
			return err
		}
	}
	if n > 0 && outputs[n-1].IsNull() {
		return errors.New("coins record has trailing spent outputs")
	}

	c.Version = int32(uint32(version))
	c.Height = int32(uint32(code >> 1))
	c.CoinBase = code&1 == 1
	c.Outputs = outputs
	if n == 0 {
		c.Outputs = nil
	}
	return nil
}

func (c *Coins) Bytes() []byte {
	buf := bytes.NewBuffer(nil)
	if err := c.Serialize(buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func FromBytes(b []byte) (*Coins, error) {
	c := new(Coins)
	if err := c.Unserialize(bytes.NewReader(b)); err != nil {
		return nil, err
	}
	return c, nil
}
