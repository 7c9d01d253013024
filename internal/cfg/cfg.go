// Package cfg partitions a lifted function's SBIR code into basic blocks
// and links them into a control-flow graph, following the block-splitting
// and successor-linking approach of a bytecode-to-CFG lifter: label every
// jump target, split at terminators, then resolve labels to block ids in
// a second pass.
package cfg

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// BlockId is a dense index into a Graph's Blocks slice.
type BlockId int

// BlockKind discriminates a Basic block (a contiguous run of code) from a
// synthetic Dummy node (entry or exit).
type BlockKind int

const (
	Basic BlockKind = iota
	Dummy
)

// Block is one CFG node. For a Basic block, Lower/Upper are inclusive
// offsets into the owning function's Code.
type Block struct {
	Kind  BlockKind
	Lower int
	Upper int
}

// Graph is one function's control-flow graph: a dense set of blocks plus
// forward and reverse adjacency. Entry and Exit name the synthetic Dummy
// nodes every Graph has exactly one of.
type Graph struct {
	Blocks []Block
	Succs  [][]BlockId
	Preds  [][]BlockId
	Entry  BlockId
	Exit   BlockId

	// offsetBlock maps a code offset to the Basic block containing it.
	offsetBlock map[int]BlockId
}

// Successors returns b's successor blocks.
func (g *Graph) Successors(b BlockId) []BlockId { return g.Succs[b] }

// Predecessors returns the blocks with an edge into b.
func (g *Graph) Predecessors(b BlockId) []BlockId { return g.Preds[b] }

// BlockOf returns the Basic block containing code offset.
func (g *Graph) BlockOf(offset int) (BlockId, bool) {
	b, ok := g.offsetBlock[offset]
	return b, ok
}

// Build partitions fn.Code into basic blocks and links them into a forward
// CFG with a synthetic entry pointing at the first block and a synthetic
// exit collecting every Ret/Abort block (spec.md §4.2). Build returns an
// error for a function with no code, and otherwise only for malformed SBIR
// (e.g. a Branch/Jump naming a Label that was never emitted) — the latter
// indicates a lifter bug, not an analyzer precondition a caller can
// recover from.
func Build(fn *sbir.FunctionInfo) (*Graph, error) {
	code := fn.Code
	if len(code) == 0 {
		return nil, errors.New("cfg: cannot build a graph for a function with no code")
	}

	labelOffset := make(map[sbir.Label]int)
	for offset, instr := range code {
		if instr.Kind == sbir.ILabel {
			labelOffset[instr.L] = offset
		}
	}

	boundaries := map[int]bool{0: true}
	for offset, instr := range code {
		if instr.Kind == sbir.ILabel {
			boundaries[offset] = true
		}
		if isTerminator(instr) && offset+1 < len(code) {
			boundaries[offset+1] = true
		}
	}

	starts := make([]int, 0, len(boundaries))
	for off := range boundaries {
		starts = append(starts, off)
	}
	sort.Ints(starts)

	g := &Graph{offsetBlock: make(map[int]BlockId)}
	g.Entry = g.addBlock(Block{Kind: Dummy})
	g.Exit = g.addBlock(Block{Kind: Dummy})

	blockStart := make(map[int]BlockId, len(starts))
	for i, lower := range starts {
		upper := len(code) - 1
		if i+1 < len(starts) {
			upper = starts[i+1] - 1
		}
		id := g.addBlock(Block{Kind: Basic, Lower: lower, Upper: upper})
		blockStart[lower] = id
		for off := lower; off <= upper; off++ {
			g.offsetBlock[off] = id
		}
	}

	first := blockStart[0]
	g.addEdge(g.Entry, first)

	for _, lower := range starts {
		id := blockStart[lower]
		blk := g.Blocks[id]
		last := code[blk.Upper]
		switch last.Kind {
		case sbir.IJump:
			target, ok := labelOffset[last.L]
			if !ok {
				return nil, errors.Errorf("cfg: jump to undefined label %d", last.L)
			}
			to, ok := blockStart[target]
			if !ok {
				return nil, errors.Errorf("cfg: jump target offset %d is not a block start", target)
			}
			g.addEdge(id, to)

		case sbir.IBranch:
			for _, l := range []sbir.Label{last.Then, last.Else} {
				target, ok := labelOffset[l]
				if !ok {
					return nil, errors.Errorf("cfg: branch to undefined label %d", l)
				}
				to, ok := blockStart[target]
				if !ok {
					return nil, errors.Errorf("cfg: branch target offset %d is not a block start", target)
				}
				g.addEdge(id, to)
			}

		case sbir.IRet, sbir.IAbort:
			g.addEdge(id, g.Exit)

		default:
			return nil, errors.Errorf("cfg: block %d does not end in a terminator (offset %d, kind %d)", id, blk.Upper, last.Kind)
		}
	}

	return g, nil
}

func (g *Graph) addBlock(b Block) BlockId {
	id := BlockId(len(g.Blocks))
	g.Blocks = append(g.Blocks, b)
	g.Succs = append(g.Succs, nil)
	g.Preds = append(g.Preds, nil)
	return id
}

func (g *Graph) addEdge(from, to BlockId) {
	g.Succs[from] = append(g.Succs[from], to)
	g.Preds[to] = append(g.Preds[to], from)
}

func isTerminator(i sbir.Instr) bool {
	switch i.Kind {
	case sbir.IJump, sbir.IBranch, sbir.IRet, sbir.IAbort:
		return true
	default:
		return false
	}
}
