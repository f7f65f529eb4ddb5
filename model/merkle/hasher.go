package merkle

import (
	"crypto/sha256"

	"golang.org/x/crypto/blake2b"

	"github.com/copernet/chainstate/util"
)

// Hasher combines two sibling nodes into their parent. level is the height
// of the children, 0 for leaves.
type Hasher interface {
	Combine(level int, left, right *util.Hash) util.Hash
	// Uncommitted is the placeholder for a leaf slot that is still empty.
	Uncommitted() util.Hash
}

// SHA256Hasher hashes left||right with sha256; levels are not
// distinguished.
type SHA256Hasher struct{}

func (SHA256Hasher) Combine(level int, left, right *util.Hash) util.Hash {
	h := sha256.New()
	h.Write(left[:])
	h.Write(right[:])
	var ret util.Hash
	copy(ret[:], h.Sum(nil))
	return ret
}

func (SHA256Hasher) Uncommitted() util.Hash {
	return util.HashZero
}

// Blake2bHasher prefixes every combination with its level so that equal
// subtrees at different heights never collide.
type Blake2bHasher struct{}

func (Blake2bHasher) Combine(level int, left, right *util.Hash) util.Hash {
	var buf [1 + 2*util.Hash256Size]byte
	buf[0] = byte(level)
	copy(buf[1:], left[:])
	copy(buf[1+util.Hash256Size:], right[:])
	return util.Hash(blake2b.Sum256(buf[:]))
}

func (Blake2bHasher) Uncommitted() util.Hash {
	return util.Hash{1}
}

// EmptyRoots returns the roots of empty subtrees of height 0..depth.
func EmptyRoots(depth int, hasher Hasher) []util.Hash {
	roots := make([]util.Hash, depth+1)
	roots[0] = hasher.Uncommitted()
	for d := 1; d <= depth; d++ {
		roots[d] = hasher.Combine(d-1, &roots[d-1], &roots[d-1])
	}
	return roots
}
