package shielded

import (
	"fmt"

	"github.com/copernet/chainstate/model/merkle"
)

// Pool is a shielded protocol generation. Each pool has its own anchor and
// nullifier keyspaces.
type Pool int

const (
	Sprout Pool = iota
	Sapling
)

const PoolCount = 2

const (
	SproutTreeDepth  = 29
	SaplingTreeDepth = 32
)

// Pools lists every pool in keyspace order.
var Pools = [PoolCount]Pool{Sprout, Sapling}

func (p Pool) String() string {
	switch p {
	case Sprout:
		return "sprout"
	case Sapling:
		return "sapling"
	}
	return fmt.Sprintf("unknown pool (%d)", int(p))
}

func (p Pool) IsValid() bool {
	return p >= 0 && p < PoolCount
}

func (p Pool) TreeDepth() int {
	switch p {
	case Sprout:
		return SproutTreeDepth
	case Sapling:
		return SaplingTreeDepth
	}
	panic(p.String())
}

func (p Pool) Hasher() merkle.Hasher {
	switch p {
	case Sprout:
		return merkle.SHA256Hasher{}
	case Sapling:
		return merkle.Blake2bHasher{}
	}
	panic(p.String())
}
