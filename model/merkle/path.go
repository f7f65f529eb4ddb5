package merkle

import "github.com/copernet/chainstate/util"

// Path authenticates one leaf. Siblings and Positions are ordered from the
// leaf level upwards; Positions[d] is true when the node on the path at
// height d is a right child.
type Path struct {
	Siblings  []util.Hash
	Positions []bool
}

func (p *Path) push(sibling util.Hash, isRight bool) {
	p.Siblings = append(p.Siblings, sibling)
	p.Positions = append(p.Positions, isRight)
}

// Root folds leaf up the path.
func (p *Path) Root(leaf util.Hash, hasher Hasher) util.Hash {
	node := leaf
	for d := range p.Siblings {
		if p.Positions[d] {
			node = hasher.Combine(d, &p.Siblings[d], &node)
		} else {
			node = hasher.Combine(d, &node, &p.Siblings[d])
		}
	}
	return node
}

// Index is the leaf position encoded by Positions.
func (p *Path) Index() uint64 {
	var index uint64
	for d, right := range p.Positions {
		if right {
			index |= 1 << uint(d)
		}
	}
	return index
}
