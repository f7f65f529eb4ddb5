package merkle

import (
	"errors"
	"fmt"
	"io"

	"github.com/copernet/chainstate/util"
)

var (
	ErrTreeFull            = errors.New("tree is full")
	ErrEmptyTree           = errors.New("can't create an authentication path for the beginning of the tree")
	ErrWitnessUnavailable  = errors.New("witness is only available for the most recently appended leaf")
	errNonCanonicalParents = errors.New("tree has non-canonical representation of parent")
)

const hashUsage = util.Hash256Size + 8

// IncrementalTree is an append-only Merkle tree of fixed depth that keeps
// only its frontier: the two newest leaves and one optional node per level
// above them.
type IncrementalTree struct {
	depth   int
	hasher  Hasher
	empty   []util.Hash
	left    *util.Hash
	right   *util.Hash
	parents []*util.Hash
}

func NewIncrementalTree(depth int, hasher Hasher) *IncrementalTree {
	if depth < 1 || depth > 62 {
		panic(fmt.Sprintf("invalid merkle tree depth %d", depth))
	}
	return &IncrementalTree{
		depth:  depth,
		hasher: hasher,
		empty:  EmptyRoots(depth, hasher),
	}
}

func (t *IncrementalTree) Depth() int {
	return t.depth
}

// EmptyRoot is the root of a tree of this shape with no leaves.
func (t *IncrementalTree) EmptyRoot() util.Hash {
	return t.empty[t.depth]
}

func (t *IncrementalTree) Size() uint64 {
	var ret uint64
	if t.left != nil {
		ret++
	}
	if t.right != nil {
		ret++
	}
	// occupied parents read as a binary number shifted left by one
	for i, p := range t.parents {
		if p != nil {
			ret += 1 << uint(i+1)
		}
	}
	return ret
}

// Last returns the most recently appended leaf.
func (t *IncrementalTree) Last() (util.Hash, bool) {
	switch {
	case t.right != nil:
		return *t.right, true
	case t.left != nil:
		return *t.left, true
	}
	return util.Hash{}, false
}

func (t *IncrementalTree) isComplete() bool {
	if t.left == nil || t.right == nil {
		return false
	}
	if len(t.parents) != t.depth-1 {
		return false
	}
	for _, p := range t.parents {
		if p == nil {
			return false
		}
	}
	return true
}

func (t *IncrementalTree) Append(leaf util.Hash) error {
	if t.isComplete() {
		return ErrTreeFull
	}

	switch {
	case t.left == nil:
		t.left = &leaf
	case t.right == nil:
		t.right = &leaf
	default:
		combined := t.hasher.Combine(0, t.left, t.right)
		t.left = &leaf
		t.right = nil

		for i := 0; i < t.depth; i++ {
			if i == len(t.parents) {
				c := combined
				t.parents = append(t.parents, &c)
				break
			}
			if t.parents[i] == nil {
				c := combined
				t.parents[i] = &c
				break
			}
			combined = t.hasher.Combine(i+1, t.parents[i], &combined)
			t.parents[i] = nil
		}
	}
	return nil
}

func (t *IncrementalTree) Root() util.Hash {
	combineLeft, combineRight := &t.empty[0], &t.empty[0]
	if t.left != nil {
		combineLeft = t.left
	}
	if t.right != nil {
		combineRight = t.right
	}
	root := t.hasher.Combine(0, combineLeft, combineRight)

	d := 1
	for _, p := range t.parents {
		if p != nil {
			root = t.hasher.Combine(d, p, &root)
		} else {
			root = t.hasher.Combine(d, &root, &t.empty[d])
		}
		d++
	}
	for ; d < t.depth; d++ {
		root = t.hasher.Combine(d, &root, &t.empty[d])
	}
	return root
}

// Witness returns the authentication path of the leaf at index. Only the
// frontier is kept, so index must be the last appended leaf.
func (t *IncrementalTree) Witness(index uint64) (*Path, error) {
	if t.left == nil {
		return nil, ErrEmptyTree
	}
	if index != t.Size()-1 {
		return nil, ErrWitnessUnavailable
	}

	path := &Path{
		Siblings:  make([]util.Hash, 0, t.depth),
		Positions: make([]bool, 0, t.depth),
	}
	if t.right != nil {
		path.push(*t.left, true)
	} else {
		path.push(t.empty[0], false)
	}

	d := 1
	for _, p := range t.parents {
		if p != nil {
			path.push(*p, true)
		} else {
			path.push(t.empty[d], false)
		}
		d++
	}
	for ; d < t.depth; d++ {
		path.push(t.empty[d], false)
	}
	return path, nil
}

func cloneHash(h *util.Hash) *util.Hash {
	if h == nil {
		return nil
	}
	c := *h
	return &c
}

func (t *IncrementalTree) Clone() *IncrementalTree {
	c := &IncrementalTree{
		depth:  t.depth,
		hasher: t.hasher,
		empty:  t.empty,
		left:   cloneHash(t.left),
		right:  cloneHash(t.right),
	}
	if len(t.parents) > 0 {
		c.parents = make([]*util.Hash, len(t.parents))
		for i, p := range t.parents {
			c.parents[i] = cloneHash(p)
		}
	}
	return c
}

func (t *IncrementalTree) DynamicMemoryUsage() int64 {
	usage := int64(8 * len(t.parents))
	if t.left != nil {
		usage += hashUsage
	}
	if t.right != nil {
		usage += hashUsage
	}
	for _, p := range t.parents {
		if p != nil {
			usage += hashUsage
		}
	}
	return usage
}

func writeOptional(w io.Writer, h *util.Hash) error {
	if h == nil {
		_, err := w.Write([]byte{0})
		return err
	}
	if _, err := w.Write([]byte{1}); err != nil {
		return err
	}
	_, err := h.Serialize(w)
	return err
}

func readOptional(r io.Reader) (*util.Hash, error) {
	var flag [1]byte
	if _, err := io.ReadFull(r, flag[:]); err != nil {
		return nil, err
	}
	switch flag[0] {
	case 0:
		return nil, nil
	case 1:
		h := new(util.Hash)
		if _, err := h.Unserialize(r); err != nil {
			return nil, err
		}
		return h, nil
	}
	return nil, fmt.Errorf("invalid optional flag %d", flag[0])
}

func (t *IncrementalTree) Serialize(w io.Writer) error {
	if err := writeOptional(w, t.left); err != nil {
		return err
	}
	if err := writeOptional(w, t.right); err != nil {
		return err
	}
	if err := util.WriteVarInt(w, uint64(len(t.parents))); err != nil {
		return err
	}
	for _, p := range t.parents {
		if err := writeOptional(w, p); err != nil {
			return err
		}
	}
	return nil
}

// Unserialize replaces the frontier with the one read from r and rejects
// non-canonical encodings.
func (t *IncrementalTree) Unserialize(r io.Reader) error {
	left, err := readOptional(r)
	if err != nil {
		return err
	}
	right, err := readOptional(r)
	if err != nil {
		return err
	}
	count, err := util.ReadVarInt(r)
	if err != nil {
		return err
	}
	if count >= uint64(t.depth) {
		return errors.New("tree has too many parents")
	}
	var parents []*util.Hash
	if count > 0 {
		parents = make([]*util.Hash, count)
	}
	for i := range parents {
		if parents[i], err = readOptional(r); err != nil {
			return err
		}
	}

	if len(parents) > 0 && parents[len(parents)-1] == nil {
		return errNonCanonicalParents
	}
	if left == nil && right != nil {
		return errors.New("tree has non-canonical representation; right should not exist")
	}
	if left == nil && len(parents) > 0 {
		return errors.New("tree has non-canonical representation; parents should not be unempty")
	}

	t.left, t.right, t.parents = left, right, parents
	return nil
}
