package router

import (
	"fmt"
	"sort"
)

// Block is a unit of derived state. Exec runs whenever one of the In keys
// changed and is expected to write its Out keys back through
// Router.SetState, passing along the pending set it was given.
type Block struct {
	// Name labels the block in logs and tooling. Optional.
	Name string
	In   []string
	Out  []string
	Exec func(pending *Pending) error

	index int
	depth int
}

// Depth is the number of computed layers that have to settle before the
// block can run. It is fixed when the router is built.
func (b *Block) Depth() int {
	return b.depth
}

func (b *Block) label() string {
	if b.Name != "" {
		return b.Name
	}
	return fmt.Sprintf("#%d", b.index)
}

// BlockInfo describes a registered block.
type BlockInfo struct {
	Index int
	Name  string
	In    []string
	Out   []string
	Depth int
}

// Pending holds the blocks waiting to run in one propagation pass. A block
// is only held once at a time.
type Pending struct {
	blocks []*Block
}

func (p *Pending) Len() int {
	return len(p.blocks)
}

func (p *Pending) Contains(b *Block) bool {
	for _, x := range p.blocks {
		if x == b {
			return true
		}
	}
	return false
}

func (p *Pending) add(b *Block) bool {
	if p.Contains(b) {
		return false
	}
	p.blocks = append(p.blocks, b)
	return true
}

// pop removes the shallowest block. Blocks of equal depth leave in the order
// they were added.
func (p *Pending) pop() *Block {
	sort.SliceStable(p.blocks, func(i, j int) bool {
		return p.blocks[i].depth < p.blocks[j].depth
	})
	next := p.blocks[0]
	p.blocks = p.blocks[1:]
	return next
}
