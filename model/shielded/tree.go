package shielded

import (
	"bytes"
	"io"

	"github.com/copernet/chainstate/model/merkle"
	"github.com/copernet/chainstate/util"
)

// Tree is a note commitment tree snapshot. A snapshot handed out by a cache
// is owned by the receiver and may be appended to freely.
type Tree interface {
	Pool() Pool
	Append(cm util.Hash) error
	Root() util.Hash
	Size() uint64
	Witness(index uint64) (*merkle.Path, error)
	Clone() Tree
	DynamicMemoryUsage() int64
	Serialize(w io.Writer) error
}

type commitmentTree struct {
	pool Pool
	*merkle.IncrementalTree
}

func (t *commitmentTree) Pool() Pool {
	return t.pool
}

func (t *commitmentTree) Clone() Tree {
	return &commitmentTree{pool: t.pool, IncrementalTree: t.IncrementalTree.Clone()}
}

func (t *commitmentTree) DynamicMemoryUsage() int64 {
	return 16 + t.IncrementalTree.DynamicMemoryUsage()
}

func NewEmptyTree(pool Pool) Tree {
	return &commitmentTree{
		pool:            pool,
		IncrementalTree: merkle.NewIncrementalTree(pool.TreeDepth(), pool.Hasher()),
	}
}

var emptyRoots = [PoolCount]util.Hash{
	NewEmptyTree(Sprout).Root(),
	NewEmptyTree(Sapling).Root(),
}

// EmptyRoot is the root of the pool's tree with no commitments. It is the
// default best anchor and always resolves.
func EmptyRoot(pool Pool) util.Hash {
	return emptyRoots[pool]
}

func IsEmptyRoot(root *util.Hash, pool Pool) bool {
	return *root == emptyRoots[pool]
}

func DecodeTree(pool Pool, r io.Reader) (Tree, error) {
	tree := merkle.NewIncrementalTree(pool.TreeDepth(), pool.Hasher())
	if err := tree.Unserialize(r); err != nil {
		return nil, err
	}
	return &commitmentTree{pool: pool, IncrementalTree: tree}, nil
}

func TreeFromBytes(pool Pool, b []byte) (Tree, error) {
	return DecodeTree(pool, bytes.NewReader(b))
}

func TreeBytes(tree Tree) []byte {
	buf := bytes.NewBuffer(nil)
	if err := tree.Serialize(buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
