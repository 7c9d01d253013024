// Package loopanalysis computes dominator trees, natural loops, and the
// "fat loop" decomposition (sub-loops merged by shared header) that the
// infinite-loop and other loop-sensitive detectors consume. The dominator
// computation follows the iterative Cooper/Harvey/Kennedy algorithm cited
// by the teacher's SSA lifting pass for the same problem.
package loopanalysis

import (
	"sort"

	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/cfg"
	"github.com/Idealist17/Sui-Move-to-Knowledge-Graph/internal/sbir"
)

// Dominators holds the immediate-dominator relation for one Graph, rooted
// at its Entry.
type Dominators struct {
	g    *cfg.Graph
	idom map[cfg.BlockId]cfg.BlockId
	rpo  []cfg.BlockId
}

// Compute builds the dominator tree of g via the standard iterative
// data-flow fixpoint over a reverse-postorder block sequence.
func Compute(g *cfg.Graph) *Dominators {
	rpo := reversePostorder(g)
	order := make(map[cfg.BlockId]int, len(rpo))
	for i, b := range rpo {
		order[b] = i
	}

	idom := make(map[cfg.BlockId]cfg.BlockId)
	idom[g.Entry] = g.Entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == g.Entry {
				continue
			}
			var newIdom cfg.BlockId
			first := true
			for _, p := range g.Predecessors(b) {
				if _, ok := idom[p]; !ok {
					continue
				}
				if first {
					newIdom = p
					first = false
					continue
				}
				newIdom = intersect(idom, order, newIdom, p)
			}
			if first {
				continue
			}
			if cur, ok := idom[b]; !ok || cur != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	return &Dominators{g: g, idom: idom, rpo: rpo}
}

func intersect(idom map[cfg.BlockId]cfg.BlockId, order map[cfg.BlockId]int, a, b cfg.BlockId) cfg.BlockId {
	for a != b {
		for order[a] > order[b] {
			a = idom[a]
		}
		for order[b] > order[a] {
			b = idom[b]
		}
	}
	return a
}

func reversePostorder(g *cfg.Graph) []cfg.BlockId {
	visited := make(map[cfg.BlockId]bool)
	var post []cfg.BlockId
	var visit func(b cfg.BlockId)
	visit = func(b cfg.BlockId) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range g.Successors(b) {
			visit(s)
		}
		post = append(post, b)
	}
	visit(g.Entry)

	rpo := make([]cfg.BlockId, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}

// Dominates reports whether u dominates v (u == v counts).
func (d *Dominators) Dominates(u, v cfg.BlockId) bool {
	for {
		if u == v {
			return true
		}
		if v == d.g.Entry {
			return u == d.g.Entry
		}
		parent, ok := d.idom[v]
		if !ok {
			return false
		}
		if parent == v {
			return false
		}
		v = parent
	}
}

// BackEdge is a u->v edge where v dominates u.
type BackEdge struct {
	From cfg.BlockId
	To   cfg.BlockId
}

// BackEdges returns every edge of g whose target is an ancestor of its
// source in a DFS tree rooted at entry, plus whether the graph is
// reducible (every such edge's target dominates its source — an
// irreducible edge targets an ancestor in the DFS sense without
// dominating it).
func BackEdges(g *cfg.Graph, d *Dominators) ([]BackEdge, bool) {
	var edges []BackEdge
	reducible := true

	onStack := make(map[cfg.BlockId]bool)
	visited := make(map[cfg.BlockId]bool)
	var visit func(u cfg.BlockId)
	visit = func(u cfg.BlockId) {
		visited[u] = true
		onStack[u] = true
		for _, v := range g.Successors(u) {
			if onStack[v] {
				edges = append(edges, BackEdge{From: u, To: v})
				if !d.Dominates(v, u) {
					reducible = false
				}
				continue
			}
			if !visited[v] {
				visit(v)
			}
		}
		onStack[u] = false
	}
	visit(g.Entry)

	return edges, reducible
}

// NaturalLoop returns the body of the natural loop induced by back-edge
// (from, to): every node that can reach from without passing through to,
// plus to itself.
func NaturalLoop(g *cfg.Graph, edge BackEdge) map[cfg.BlockId]bool {
	body := map[cfg.BlockId]bool{edge.To: true, edge.From: true}
	var stack []cfg.BlockId
	if edge.From != edge.To {
		stack = append(stack, edge.From)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range g.Predecessors(n) {
			if !body[p] {
				body[p] = true
				stack = append(stack, p)
			}
		}
	}
	return body
}

// FatLoop merges every natural loop sharing a header block, recording
// which temps any sub-loop body may modify (spec.md §4.4).
type FatLoop struct {
	Header     cfg.BlockId
	SubLoops   []map[cfg.BlockId]bool
	BackEdges  []int // code offsets of back-edge terminators
	ValTargets map[sbir.Temp]bool
	MutTargets map[sbir.Temp]bool
	Invariants []string
}

// BuildFatLoops groups every natural loop of g by header and computes its
// modification sets against fn's instruction stream. Returns (nil, true)
// if g has no back-edges, and (nil, false) if g is irreducible.
func BuildFatLoops(g *cfg.Graph, fn *sbir.FunctionInfo) ([]*FatLoop, bool) {
	d := Compute(g)
	edges, reducible := BackEdges(g, d)
	if !reducible {
		return nil, false
	}
	if len(edges) == 0 {
		return nil, true
	}

	byHeader := make(map[cfg.BlockId]*FatLoop)
	var headers []cfg.BlockId
	for _, e := range edges {
		fl, ok := byHeader[e.To]
		if !ok {
			fl = &FatLoop{Header: e.To, ValTargets: make(map[sbir.Temp]bool), MutTargets: make(map[sbir.Temp]bool)}
			byHeader[e.To] = fl
			headers = append(headers, e.To)
		}
		fl.SubLoops = append(fl.SubLoops, NaturalLoop(g, e))

		block := g.Blocks[e.From]
		fl.BackEdges = append(fl.BackEdges, block.Upper)
	}

	out := make([]*FatLoop, 0, len(headers))
	for _, h := range headers {
		fl := byHeader[h]
		body := map[cfg.BlockId]bool{}
		for _, sub := range fl.SubLoops {
			for b := range sub {
				body[b] = true
			}
		}
		for b := range body {
			blk := g.Blocks[b]
			if blk.Kind != cfg.Basic {
				continue
			}
			for off := blk.Lower; off <= blk.Upper; off++ {
				modifies(fn.Code[off], fl.ValTargets, fl.MutTargets)
			}
		}
		out = append(out, fl)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Header < out[j].Header })
	return out, true
}

// modifies implements spec.md §4.4's modification-inference rule: which
// temps a single instruction may write to, split into "value changed"
// (ValTargets) versus "mutable-reference pointer rewritten, not just its
// pointee" (MutTargets).
func modifies(instr sbir.Instr, val map[sbir.Temp]bool, mut map[sbir.Temp]bool) {
	switch instr.Kind {
	case sbir.IAssign:
		val[instr.Dst] = true
		if instr.AsgnKind == sbir.Store {
			mut[instr.Dst] = true
		}
	case sbir.ICall:
		for _, d := range instr.Dsts {
			val[d] = true
		}
		switch instr.Op.Kind {
		case sbir.OpWriteRef:
			if len(instr.Srcs) > 0 {
				val[instr.Srcs[0]] = true
			}
		case sbir.OpFunction:
			for _, s := range instr.Srcs {
				mut[s] = true
			}
		}
		if instr.Abrt.Present {
			val[instr.Abrt.ErrTemp] = true
		}
	case sbir.IAbort:
		val[instr.ErrSrc] = true
	}
}
